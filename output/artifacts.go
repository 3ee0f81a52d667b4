package output

import (
	"time"

	"github.com/roach88/ocptv/internal/schema"
)

// Subcomponent narrows a measurement or diagnosis to part of a hardware item.
type Subcomponent struct {
	Type     SubcomponentType
	Name     string
	Location string
	Version  string
	Revision string
}

// Diagnosis is a verdict reached by a step.
type Diagnosis struct {
	Verdict        string
	Type           DiagnosisType
	Message        string
	HardwareInfo   *HardwareInfo
	Subcomponent   *Subcomponent
	SourceLocation *SourceLocation
}

// Validator describes a check a consumer applies to a measured value.
type Validator struct {
	Name     string
	Type     ValidatorType
	Value    any
	Metadata map[string]any
}

// Measurement is a single named value.
type Measurement struct {
	Name         string
	Value        any
	Unit         string
	Validators   []Validator
	HardwareInfo *HardwareInfo
	Subcomponent *Subcomponent
	Metadata     map[string]any
}

// Log is a free-text record.
type Log struct {
	Severity       LogSeverity
	Message        string
	SourceLocation *SourceLocation
}

// Error reports a failure of the test itself, as opposed to a DUT verdict.
type Error struct {
	Symptom        string
	Message        string
	SoftwareInfos  []*SoftwareInfo
	SourceLocation *SourceLocation
}

// File references an attachment stored elsewhere.
type File struct {
	Name        string
	URI         string
	IsSnapshot  bool
	Description string
	ContentType string
	Metadata    map[string]any
}

// MeasurementSeriesDetail describes a series at start.
type MeasurementSeriesDetail struct {
	Name         string
	Unit         string
	Validators   []Validator
	HardwareInfo *HardwareInfo
	Subcomponent *Subcomponent
	Metadata     map[string]any
}

// MeasurementElement is one value of a series. A zero Timestamp means now.
type MeasurementElement struct {
	Value     any
	Timestamp time.Time
	Metadata  map[string]any
}

func (s *SourceLocation) toSchema() *schema.SourceLocation {
	if s == nil {
		return nil
	}
	return &schema.SourceLocation{File: s.File, Line: s.Line}
}

func (s *Subcomponent) toSchema() *schema.Subcomponent {
	if s == nil {
		return nil
	}
	return &schema.Subcomponent{
		Type:     s.Type,
		Name:     s.Name,
		Location: s.Location,
		Version:  s.Version,
		Revision: s.Revision,
	}
}

func validatorsToSchema(vs []Validator) []schema.Validator {
	if len(vs) == 0 {
		return nil
	}
	out := make([]schema.Validator, len(vs))
	for i, v := range vs {
		out[i] = schema.Validator{Name: v.Name, Type: v.Type, Value: v.Value, Metadata: v.Metadata}
	}
	return out
}

func hardwareID(h *HardwareInfo) string {
	if h == nil {
		return ""
	}
	return h.ID
}

func (d Diagnosis) toSchema() *schema.Diagnosis {
	return &schema.Diagnosis{
		Verdict:        d.Verdict,
		Type:           d.Type,
		Message:        d.Message,
		HardwareInfoID: hardwareID(d.HardwareInfo),
		Subcomponent:   d.Subcomponent.toSchema(),
		SourceLocation: d.SourceLocation.toSchema(),
	}
}

func (m Measurement) toSchema() *schema.Measurement {
	return &schema.Measurement{
		Name:           m.Name,
		Value:          m.Value,
		Unit:           m.Unit,
		Validators:     validatorsToSchema(m.Validators),
		HardwareInfoID: hardwareID(m.HardwareInfo),
		Subcomponent:   m.Subcomponent.toSchema(),
		Metadata:       m.Metadata,
	}
}

func (l Log) toSchema() *schema.Log {
	return &schema.Log{
		Severity:       l.Severity,
		Message:        l.Message,
		SourceLocation: l.SourceLocation.toSchema(),
	}
}

func (e Error) toSchema() *schema.Error {
	var ids []string
	for _, sw := range e.SoftwareInfos {
		if sw != nil {
			ids = append(ids, sw.ID)
		}
	}
	return &schema.Error{
		Symptom:         e.Symptom,
		Message:         e.Message,
		SoftwareInfoIDs: ids,
		SourceLocation:  e.SourceLocation.toSchema(),
	}
}

func (f File) toSchema() *schema.File {
	return &schema.File{
		Name:        f.Name,
		URI:         f.URI,
		IsSnapshot:  f.IsSnapshot,
		Description: f.Description,
		ContentType: f.ContentType,
		Metadata:    f.Metadata,
	}
}
