package builder

import "strconv"

// DocumentIDFormatter renders the composite id of a page document. It must
// be a pure function of its arguments.
type DocumentIDFormatter func(siteHash string, pageID, pageType, languageUID int, groups, mountPoint string) string

// FormatPageDocumentID is the default formatter:
//
//	<siteHash>/pages/<uid>/[<mountPoint>/]<type>/<language>/<groups>
func FormatPageDocumentID(siteHash string, pageID, pageType, languageUID int, groups, mountPoint string) string {
	id := siteHash + "/" + recordType + "/" + strconv.Itoa(pageID) + "/"
	if mountPoint != "" {
		id += mountPoint + "/"
	}
	return id + strconv.Itoa(pageType) + "/" + strconv.Itoa(languageUID) + "/" + groups
}
