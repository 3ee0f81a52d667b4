package output

import (
	"maps"
	"sync"

	"github.com/roach88/ocptv/internal/schema"
)

// DutInfo describes the device under test. It is snapshotted when the run
// starts; later additions do not reach the stream.
//
// Thread-safety: DutInfo is safe for concurrent use.
type DutInfo struct {
	id       string
	name     string
	metadata map[string]any
	ids      IDGenerator

	mu       sync.Mutex
	platform []string
	software []*SoftwareInfo
	hardware []*HardwareInfo
}

// SoftwareInfo is a software component of the DUT. Leaf artifacts refer to
// it by ID. An empty ID is filled in by the DutInfo's IDGenerator.
type SoftwareInfo struct {
	ID             string
	Name           string
	Version        string
	Revision       string
	Type           SoftwareType
	ComputerSystem string
}

// HardwareInfo is a hardware component of the DUT. Leaf artifacts refer to
// it by ID. An empty ID is filled in by the DutInfo's IDGenerator.
type HardwareInfo struct {
	ID                     string
	Name                   string
	Version                string
	Revision               string
	Location               string
	SerialNumber           string
	PartNumber             string
	Manufacturer           string
	ManufacturerPartNumber string
	OdataID                string
	ComputerSystem         string
	Manager                string
}

// DutInfoOption configures a DutInfo.
type DutInfoOption func(*DutInfo)

// WithDutName sets the human-readable DUT name.
func WithDutName(name string) DutInfoOption {
	return func(d *DutInfo) {
		d.name = name
	}
}

// WithDutMetadata adds a key to the DUT metadata.
func WithDutMetadata(key string, value any) DutInfoOption {
	return func(d *DutInfo) {
		if d.metadata == nil {
			d.metadata = make(map[string]any)
		}
		d.metadata[key] = value
	}
}

// WithIDGenerator sets the generator for software and hardware ids.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) DutInfoOption {
	return func(d *DutInfo) {
		d.ids = g
	}
}

// NewDutInfo creates a DUT description identified by id.
func NewDutInfo(id string, opts ...DutInfoOption) *DutInfo {
	d := &DutInfo{id: id, ids: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ID returns the dutInfoId.
func (d *DutInfo) ID() string {
	return d.id
}

// AddPlatformInfo appends a platform description.
func (d *DutInfo) AddPlatformInfo(info string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.platform = append(d.platform, info)
}

// AddSoftwareInfo registers sw and returns the stored copy, whose ID is set.
func (d *DutInfo) AddSoftwareInfo(sw SoftwareInfo) *SoftwareInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	if sw.ID == "" {
		sw.ID = d.ids.Generate()
	}
	stored := &sw
	d.software = append(d.software, stored)
	return stored
}

// AddHardwareInfo registers hw and returns the stored copy, whose ID is set.
func (d *DutInfo) AddHardwareInfo(hw HardwareInfo) *HardwareInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	if hw.ID == "" {
		hw.ID = d.ids.Generate()
	}
	stored := &hw
	d.hardware = append(d.hardware, stored)
	return stored
}

// SoftwareInfo looks up a registered software info by id.
func (d *DutInfo) SoftwareInfo(id string) (*SoftwareInfo, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, sw := range d.software {
		if sw.ID == id {
			return sw, true
		}
	}
	return nil, false
}

// HardwareInfo looks up a registered hardware info by id.
func (d *DutInfo) HardwareInfo(id string) (*HardwareInfo, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, hw := range d.hardware {
		if hw.ID == id {
			return hw, true
		}
	}
	return nil, false
}

func (d *DutInfo) toSchema() schema.DutInfo {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := schema.DutInfo{
		DutInfoID: d.id,
		Name:      d.name,
		Metadata:  maps.Clone(d.metadata),
	}
	for _, p := range d.platform {
		out.PlatformInfos = append(out.PlatformInfos, schema.PlatformInfo{Info: p})
	}
	for _, sw := range d.software {
		out.SoftwareInfos = append(out.SoftwareInfos, schema.SoftwareInfo{
			SoftwareInfoID: sw.ID,
			Name:           sw.Name,
			Version:        sw.Version,
			Revision:       sw.Revision,
			SoftwareType:   sw.Type,
			ComputerSystem: sw.ComputerSystem,
		})
	}
	for _, hw := range d.hardware {
		out.HardwareInfos = append(out.HardwareInfos, schema.HardwareInfo{
			HardwareInfoID:         hw.ID,
			Name:                   hw.Name,
			Version:                hw.Version,
			Revision:               hw.Revision,
			Location:               hw.Location,
			SerialNumber:           hw.SerialNumber,
			PartNumber:             hw.PartNumber,
			Manufacturer:           hw.Manufacturer,
			ManufacturerPartNumber: hw.ManufacturerPartNumber,
			OdataID:                hw.OdataID,
			ComputerSystem:         hw.ComputerSystem,
			Manager:                hw.Manager,
		})
	}
	return out
}
