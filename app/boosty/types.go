package boosty

import "encoding/json"

// Block is one entry of the Boosty post content array. Fields are sparse;
// which ones are set depends on Type.
type Block struct {
	Type        string      `json:"type"`
	Modificator string      `json:"modificator,omitempty"`
	Content     string      `json:"content,omitempty"`
	URL         string      `json:"url,omitempty"`
	Title       string      `json:"title,omitempty"`
	ID          flexString  `json:"id,omitempty"`
	Vid         flexString  `json:"vid,omitempty"`
	Preview     string      `json:"preview,omitempty"`
	PreviewURL  string      `json:"previewUrl,omitempty"`
	PlayerURLs  []PlayerURL `json:"playerUrls,omitempty"`
}

// PlayerURL is one quality variant of an ok_video block.
type PlayerURL struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// blockEnd terminates the current paragraph in the block stream.
const blockEnd = "BLOCK_END"

// flexString tolerates identifiers served as either JSON strings or numbers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}

// listResponse is one page of the post listing API.
type listResponse struct {
	Data  []json.RawMessage `json:"data"`
	Extra listExtra         `json:"extra"`
}

type listExtra struct {
	IsLast bool            `json:"isLast"`
	Offset json.RawMessage `json:"offset"`
}

// postData is the subset of the post API payload the archive needs.
type postData struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt int64  `json:"createdAt"`
	User      struct {
		BlogURL string `json:"blogUrl"`
	} `json:"user"`
	Tags []struct {
		Title string `json:"title"`
	} `json:"tags"`
	Data []json.RawMessage `json:"data"`
}
