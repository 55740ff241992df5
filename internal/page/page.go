// Package page holds the CMS page record as the indexer sees it and the
// Postgres repository the batch reindexer reads rendered pages from.
package page

// Page is a rendered page record. Timestamps are unix seconds.
type Page struct {
	ID          int    `json:"uid"`
	Type        int    `json:"type"`
	LanguageUID int    `json:"sys_language_uid"`
	ParentID    int    `json:"pid"`
	Created     int64  `json:"crdate"`
	Changed     int64  `json:"SYS_LASTCHANGED"`
	Title       string `json:"title"`
	SubTitle    string `json:"subtitle"`
	NavTitle    string `json:"nav_title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Abstract    string `json:"abstract"`
	// Keywords is nil when the record has no keywords attribute at all,
	// which is distinct from an empty list.
	Keywords *string `json:"keywords,omitempty"`
	// EndTime of zero means the page never expires.
	EndTime int64  `json:"endtime"`
	Content string `json:"content"`
}

// Rendering is a page together with the request context it was rendered in.
type Rendering struct {
	Page           Page
	URL            string
	AccessRootline string
	MountPoint     string
}
