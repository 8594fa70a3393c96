package sponsr

import "encoding/json"

// listResponse is one page of the more-posts listing API.
type listResponse struct {
	Response struct {
		Rows      []json.RawMessage `json:"rows"`
		RowsCount int               `json:"rows_count"`
	} `json:"response"`
}

// postRow is a post as served by the listing API or the post page payload.
// Field names differ between the two, so both variants are declared.
type postRow struct {
	PostID    flexString  `json:"post_id"`
	ID        flexString  `json:"id"`
	PostTitle string      `json:"post_title"`
	Title     string      `json:"title"`
	PostDate  string      `json:"post_date"`
	Date      string      `json:"date"`
	PostURL   string      `json:"post_url"`
	PostText  textPayload `json:"post_text"`
	Text      textPayload `json:"text"`
	Tags      []tagEntry  `json:"tags"`
}

// nextData is the subset of the __NEXT_DATA__ page payload the archive needs.
type nextData struct {
	Props struct {
		PageProps struct {
			Project struct {
				ID flexString `json:"id"`
			} `json:"project"`
			Post json.RawMessage `json:"post"`
		} `json:"pageProps"`
	} `json:"props"`
}

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

// textPayload accepts post text served either as an object with a text field
// or as a plain HTML string.
type textPayload struct {
	Text string
}

func (t *textPayload) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		return json.Unmarshal(b, &t.Text)
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	t.Text = obj.Text
	return nil
}

// tagEntry accepts tags served as plain strings, objects with tag_name, or
// objects nesting the name under tag.tag_name.
type tagEntry struct {
	Name string
}

func (t *tagEntry) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		return json.Unmarshal(b, &t.Name)
	}
	var obj struct {
		TagName string `json:"tag_name"`
		Tag     struct {
			TagName string `json:"tag_name"`
		} `json:"tag"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	t.Name = obj.TagName
	if t.Name == "" {
		t.Name = obj.Tag.TagName
	}
	return nil
}
