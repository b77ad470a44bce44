package domain

func validCollectionEvent() *CollectionEvent {
	return &CollectionEvent{
		FarmerID:       "farmer-001",
		FarmerName:     "Ravi Kumar",
		Species:        "Withania somnifera",
		CommonName:     "Ashwagandha",
		ScientificName: "Withania somnifera (L.) Dunal",
		Quantity:       12.5,
		Unit:           "kg",
		Latitude:       26.9124,
		Longitude:      75.7873,
		HarvestDate:    "2025-10-01",
		PartCollected:  "root",
	}
}

func validProduct() *Product {
	return &Product{
		ProductName:      "Ashwagandha Root Powder",
		ProductType:      "powder",
		ManufacturerID:   "mfg-001",
		ManufacturerName: "Herbal Works",
		BatchID:          "0190a8f2-6c1e-7b3a-9f00-3c2d1e0f4a5b",
		ManufactureDate:  "2025-10-10",
		ExpiryDate:       "2027-10-10",
		Quantity:         200,
		Unit:             "packs",
		QRCode:           "QR-ASH-0001",
		QualityTestIDs:   []string{"0190a8f2-6c1e-7b3a-9f00-3c2d1e0f4a5c"},
	}
}
