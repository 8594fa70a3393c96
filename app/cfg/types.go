package cfg

type Cfg struct {
	// Backup configuration
	ConfigPath string
	PostURL    string

	// Asset pipeline configuration
	WorkerCount int

	// Crawl configuration
	SafetyChunks int

	// HTTP configuration
	MaxRetries     int
	RetryBaseDelay int // seconds
	RetryMaxDelay  int // seconds
	ConnectTimeout int // seconds
	ReadTimeout    int // seconds

	// Application metadata
	UserAgent string
	Debug     bool
	Version   string
}
