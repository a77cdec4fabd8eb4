package models

import (
	"encoding/json"
	"fmt"
)

// IntakeMethod tags which variant of IntakeRecord is populated.
type IntakeMethod string

const (
	MethodManual IntakeMethod = "manual"
	MethodUpload IntakeMethod = "upload"
)

// IntakeRecord is the offer a visitor described before the assessment.
// Only one of OfferDetails / FileName is meaningful, selected by Method.
type IntakeRecord struct {
	Method       IntakeMethod
	OfferDetails string
	FileName     string
}

// ManualIntake builds the free-text variant.
func ManualIntake(details string) *IntakeRecord {
	return &IntakeRecord{Method: MethodManual, OfferDetails: details}
}

// UploadIntake builds the file-reference variant.
func UploadIntake(fileName string) *IntakeRecord {
	return &IntakeRecord{Method: MethodUpload, FileName: fileName}
}

type manualJSON struct {
	Method       IntakeMethod `json:"method"`
	OfferDetails string       `json:"offerDetails"`
}

type uploadJSON struct {
	Method   IntakeMethod `json:"method"`
	FileName string       `json:"fileName"`
}

// MarshalJSON writes only the fields of the active variant.
func (r IntakeRecord) MarshalJSON() ([]byte, error) {
	switch r.Method {
	case MethodManual:
		return json.Marshal(manualJSON{Method: r.Method, OfferDetails: r.OfferDetails})
	case MethodUpload:
		return json.Marshal(uploadJSON{Method: r.Method, FileName: r.FileName})
	default:
		return nil, fmt.Errorf("unknown intake method %q", r.Method)
	}
}

func (r *IntakeRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		Method       IntakeMethod `json:"method"`
		OfferDetails string       `json:"offerDetails"`
		FileName     string       `json:"fileName"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Method {
	case MethodManual:
		*r = IntakeRecord{Method: MethodManual, OfferDetails: raw.OfferDetails}
	case MethodUpload:
		*r = IntakeRecord{Method: MethodUpload, FileName: raw.FileName}
	default:
		return fmt.Errorf("unknown intake method %q", raw.Method)
	}
	return nil
}
