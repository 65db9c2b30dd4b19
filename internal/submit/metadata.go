package submit

import "encoding/xml"

// metadataDocument is the routing metadata XML bundled alongside the PDF in
// the uploaded zip. Field order and names follow the request's metadata.*
// fields verbatim; this is the minimal, real implementation of the
// "PDF-to-zip packaging" collaborator the top-level specification leaves at
// its interface.
type metadataDocument struct {
	XMLName             xml.Name `xml:"metadata"`
	Store               string   `xml:"store"`
	Source              string   `xml:"source"`
	TimeOfReceipt       string   `xml:"timeOfReceipt"`
	FormID              string   `xml:"formId"`
	CustomerID          string   `xml:"customerId"`
	SubmissionMark      string   `xml:"submissionMark"`
	CASKey              string   `xml:"casKey"`
	ClassificationType  string   `xml:"classificationType"`
	BusinessArea        string   `xml:"businessArea"`
	SubmissionReference string   `xml:"submissionReference"`
	SDESCorrelationID   string   `xml:"sdesCorrelationId"`
}

// buildMetadataXML renders req's metadata fields, plus the two generated
// identifiers, as a self-contained XML document.
func buildMetadataXML(req Request, submissionReference, sdesCorrelationID string) ([]byte, error) {
	doc := metadataDocument{
		Store:               req.MetadataStore,
		Source:              req.MetadataSource,
		TimeOfReceipt:       req.MetadataTimeOfReceipt,
		FormID:              req.MetadataFormID,
		CustomerID:          req.MetadataCustomerID,
		SubmissionMark:      req.MetadataSubmissionMark,
		CASKey:              req.MetadataCASKey,
		ClassificationType:  req.MetadataClassificationType,
		BusinessArea:        req.MetadataBusinessArea,
		SubmissionReference: submissionReference,
		SDESCorrelationID:   sdesCorrelationID,
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
