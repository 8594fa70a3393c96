package database

// PostStore is the index surface the sync driver and link rewriter consume.
type PostStore interface {
	PostExists(platform, author, postID string) (bool, error)
	GetPost(platform, author, postID string) (*PostRecord, error)
	GetPostBySourceURL(sourceURL string) (*PostRecord, error)
	AllPostIDs(platform, author string) (map[string]bool, error)
	AllPosts(platform, author string) ([]PostRecord, error)
	CountPosts(platform, author string) (int, error)
	UpsertPost(record PostRecord) error
}

// SyncStore tracks whether an author's history has ever been fully crawled.
type SyncStore interface {
	IsFullSync(platform, author string) (bool, error)
	MarkFullSync(platform, author string) error
	UpdateLastSync(platform, author string) error
}
