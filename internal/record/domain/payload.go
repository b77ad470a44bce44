package domain

import (
	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	customValidation "github.com/herbaltrace/ledgersync/internal/validation"
)

// Payload is the immutable domain snapshot of a record. The set of implementations is
// closed: CollectionEvent, Batch, QualityTest and Product.
type Payload interface {
	// Kind returns the record kind the payload belongs to.
	Kind() Kind
	// Validate checks the payload fields.
	Validate() error
	// References returns the parent records the payload points to.
	References() []Reference
	// Signer returns the wallet identity that must sign the ledger transaction, or an empty
	// string to use the default identity configured for the kind.
	Signer() string

	sealed()
}

// Reference is a back-reference from a payload to a parent record.
type Reference struct {
	Kind Kind
	ID   uuid.UUID
}

// CollectionEvent is a geo-tagged harvest recorded by a farmer.
type CollectionEvent struct {
	FarmerID          string   `json:"farmerId"`
	FarmerName        string   `json:"farmerName"`
	Species           string   `json:"species"`
	CommonName        string   `json:"commonName,omitempty"`
	ScientificName    string   `json:"scientificName,omitempty"`
	Quantity          float64  `json:"quantity"`
	Unit              string   `json:"unit"`
	Latitude          float64  `json:"latitude"`
	Longitude         float64  `json:"longitude"`
	Altitude          float64  `json:"altitude,omitempty"`
	HarvestDate       string   `json:"harvestDate"`
	HarvestMethod     string   `json:"harvestMethod,omitempty"`
	PartCollected     string   `json:"partCollected,omitempty"`
	ZoneName          string   `json:"zoneName,omitempty"`
	WeatherConditions string   `json:"weatherConditions,omitempty"`
	SoilType          string   `json:"soilType,omitempty"`
	Images            []string `json:"images,omitempty"`
}

func (p *CollectionEvent) Kind() Kind { return KindCollectionEvent }

func (p *CollectionEvent) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.FarmerID, validation.Required, customValidation.NotBlank, validation.Length(1, 128)),
		validation.Field(&p.FarmerName, validation.Required, customValidation.NotBlank, validation.Length(1, 255)),
		validation.Field(&p.Species, validation.Required, customValidation.NotBlank, validation.Length(1, 255)),
		validation.Field(&p.Quantity, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&p.Unit, validation.Required, customValidation.NotBlank, validation.Length(1, 32)),
		validation.Field(&p.Latitude, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&p.Longitude, validation.Min(-180.0), validation.Max(180.0)),
		validation.Field(&p.HarvestDate, validation.Required, customValidation.Date),
	)
}

func (p *CollectionEvent) References() []Reference { return nil }

func (p *CollectionEvent) Signer() string { return "" }

func (p *CollectionEvent) sealed() {}

// Batch groups collection events of one species for processing.
type Batch struct {
	BatchNumber        string   `json:"batchNumber"`
	Species            string   `json:"species"`
	TotalQuantity      float64  `json:"totalQuantity"`
	Unit               string   `json:"unit"`
	CollectionEventIDs []string `json:"collectionEventIds"`
	Status             string   `json:"status,omitempty"`
	CreatedBy          string   `json:"createdBy"`
	AssignedProcessor  string   `json:"assignedProcessor,omitempty"`
}

func (p *Batch) Kind() Kind { return KindBatch }

func (p *Batch) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.BatchNumber, validation.Required, customValidation.NotBlank, validation.Length(1, 64)),
		validation.Field(&p.Species, validation.Required, customValidation.NotBlank, validation.Length(1, 255)),
		validation.Field(&p.TotalQuantity, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&p.Unit, validation.Required, customValidation.NotBlank),
		validation.Field(&p.CollectionEventIDs, validation.Required, customValidation.UUIDList),
		validation.Field(&p.Status, validation.In("created", "assigned", "processing", "processed", "tested")),
		validation.Field(&p.CreatedBy, validation.Required, customValidation.NotBlank),
	)
}

func (p *Batch) References() []Reference {
	return referencesOf(KindCollectionEvent, p.CollectionEventIDs...)
}

func (p *Batch) Signer() string { return "" }

func (p *Batch) sealed() {}

// QualityTest is a laboratory result for a batch.
type QualityTest struct {
	BatchID          string             `json:"batchId"`
	LabID            string             `json:"labId"`
	LabName          string             `json:"labName"`
	TestDate         string             `json:"testDate"`
	MoistureContent  float64            `json:"moistureContent,omitempty"`
	PesticideResults map[string]string  `json:"pesticideResults,omitempty"`
	HeavyMetals      map[string]float64 `json:"heavyMetals,omitempty"`
	DNABarcodeMatch  bool               `json:"dnaBarcodeMatch"`
	MicrobialLoad    float64            `json:"microbialLoad,omitempty"`
	OverallResult    string             `json:"overallResult"`
	Grade            string             `json:"grade,omitempty"`
	TesterName       string             `json:"testerName,omitempty"`
	Notes            string             `json:"notes,omitempty"`
	// LabIdentity is the wallet identity of the lab; when empty the default lab identity signs.
	LabIdentity string `json:"labIdentity,omitempty"`
}

func (p *QualityTest) Kind() Kind { return KindQualityTest }

func (p *QualityTest) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.BatchID, validation.Required, customValidation.UUID),
		validation.Field(&p.LabID, validation.Required, customValidation.NotBlank, validation.Length(1, 128)),
		validation.Field(&p.LabName, validation.Required, customValidation.NotBlank, validation.Length(1, 255)),
		validation.Field(&p.TestDate, validation.Required, customValidation.Date),
		validation.Field(&p.MoistureContent, validation.Min(0.0), validation.Max(100.0)),
		validation.Field(&p.MicrobialLoad, validation.Min(0.0)),
		validation.Field(&p.OverallResult, validation.Required, validation.In("pass", "fail", "conditional")),
		validation.Field(&p.LabIdentity, customValidation.NoWhitespace),
	)
}

func (p *QualityTest) References() []Reference {
	return referencesOf(KindBatch, p.BatchID)
}

func (p *QualityTest) Signer() string { return p.LabIdentity }

func (p *QualityTest) sealed() {}

// Product is a packaged good manufactured from a tested batch.
type Product struct {
	ProductName      string   `json:"productName"`
	ProductType      string   `json:"productType"`
	ManufacturerID   string   `json:"manufacturerId"`
	ManufacturerName string   `json:"manufacturerName"`
	BatchID          string   `json:"batchId"`
	ManufactureDate  string   `json:"manufactureDate"`
	ExpiryDate       string   `json:"expiryDate"`
	Quantity         float64  `json:"quantity"`
	Unit             string   `json:"unit"`
	QRCode           string   `json:"qrCode"`
	Ingredients      []string `json:"ingredients,omitempty"`
	QualityTestIDs   []string `json:"qualityTestIds,omitempty"`
	Certifications   []string `json:"certifications,omitempty"`
}

func (p *Product) Kind() Kind { return KindProduct }

func (p *Product) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.ProductName, validation.Required, customValidation.NotBlank, validation.Length(1, 255)),
		validation.Field(&p.ProductType, validation.Required, customValidation.NotBlank),
		validation.Field(&p.ManufacturerID, validation.Required, customValidation.NotBlank),
		validation.Field(&p.ManufacturerName, validation.Required, customValidation.NotBlank),
		validation.Field(&p.BatchID, validation.Required, customValidation.UUID),
		validation.Field(&p.ManufactureDate, validation.Required, customValidation.Date),
		validation.Field(&p.ExpiryDate, validation.Required, customValidation.Date, validation.By(p.expiresAfterManufacture)),
		validation.Field(&p.Quantity, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&p.Unit, validation.Required, customValidation.NotBlank),
		validation.Field(&p.QRCode, validation.Required, customValidation.NoWhitespace, validation.Length(1, 255)),
		validation.Field(&p.QualityTestIDs, customValidation.UUIDList),
	)
}

func (p *Product) expiresAfterManufacture(value interface{}) error {
	made, ok := customValidation.ParseDate(p.ManufactureDate)
	if !ok {
		return nil
	}
	expires, ok := customValidation.ParseDate(value.(string))
	if !ok {
		return nil
	}
	if !expires.After(made) {
		return validation.NewError("validation_expiry_date", "must be after the manufacture date")
	}
	return nil
}

func (p *Product) References() []Reference {
	refs := referencesOf(KindBatch, p.BatchID)
	return append(refs, referencesOf(KindQualityTest, p.QualityTestIDs...)...)
}

func (p *Product) Signer() string { return "" }

func (p *Product) sealed() {}

// referencesOf converts ids to references, dropping values that are not UUIDs.
func referencesOf(kind Kind, ids ...string) []Reference {
	refs := make([]Reference, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		refs = append(refs, Reference{Kind: kind, ID: id})
	}
	return refs
}
