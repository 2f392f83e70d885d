package models

// FileRecord is the metadata for an uploaded blob. Text content indexable
// for RAG (txt/csv) is stored inline in ExtractedText so context assembly
// does not re-read the blob.
type FileRecord struct {
	FileID        string `json:"fileId"`
	FileName      string `json:"fileName"`
	FileType      string `json:"fileType"`
	MimeType      string `json:"mimeType"`
	BlobKey       string `json:"blobKey"`
	UserID        string `json:"userId"`
	CreatedByRole Role   `json:"createdByRole"`
	Scope
	UploadedAt    string     `json:"uploadedAt"`
	FileSize      int64      `json:"fileSize"`
	Status        FileStatus `json:"status"`
	Visibility    Visibility `json:"visibility"`
	Category      Category   `json:"category"`
	ExtractedText string     `json:"extractedText,omitempty"`
	TextBlobKey   string     `json:"textBlobKey,omitempty"`
	Description   string     `json:"description,omitempty"`
	ErrorMessage  string     `json:"errorMessage,omitempty"`
}

// SupportedFileTypes enumerates the upload pipeline's accepted types. Only
// txt and csv are indexed; the rest are stored verbatim as opaque blobs.
var SupportedFileTypes = map[string]bool{
	"pdf":  true,
	"docx": true,
	"txt":  true,
	"csv":  true,
	"xlsx": true,
}

// Indexable reports whether the file's text is extracted inline at upload.
func (f *FileRecord) Indexable() bool {
	return f.FileType == "txt" || f.FileType == "csv"
}

// Item builds the base-table item with the owner projection (GSI1) and,
// for system/organization/company visibility, the tenant projection (GSI2).
// Private and department files carry no GSI2 keys so they never surface in
// tenant-wide listings.
func (f *FileRecord) Item() (map[string]interface{}, error) {
	keys := map[string]interface{}{
		AttrPK:     FilePK(f.FileID),
		AttrSK:     SKMeta,
		AttrGSI1PK: UserPK(f.UserID),
		AttrGSI1SK: PrefixFile + f.UploadedAt,
	}
	if pk := FileGSI2Partition(f.Visibility, f.Scope); pk != "" {
		keys[AttrGSI2PK] = pk
		keys[AttrGSI2SK] = PrefixFile + f.UploadedAt
	}
	return itemize(f, keys)
}

// FileFromItem decodes a file record from a table item.
func FileFromItem(item map[string]interface{}) (*FileRecord, error) {
	var f FileRecord
	if err := decodeItem(item, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
