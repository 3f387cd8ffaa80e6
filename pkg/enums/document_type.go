package enums

import "fmt"

// DocumentType selects the numbering series a document draws from.
type DocumentType string

const (
	DocumentSale   DocumentType = "sale"
	DocumentQuote  DocumentType = "quote"
	DocumentReturn DocumentType = "return"
)

var validDocumentTypes = []DocumentType{
	DocumentSale,
	DocumentQuote,
	DocumentReturn,
}

func (d DocumentType) String() string {
	return string(d)
}

func (d DocumentType) IsValid() bool {
	for _, candidate := range validDocumentTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

func ParseDocumentType(value string) (DocumentType, error) {
	for _, candidate := range validDocumentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid document type %q", value)
}
