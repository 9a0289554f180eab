// Package models defines the data structures for the bike price predictor.
package models

import (
	"time"
)

// PredictionRequest is the body of POST /predict. First Owner has no
// indicator of its own: it is the all-zero baseline.
type PredictionRequest struct {
	Brand      int `json:"brand"`
	Model      int `json:"model"`
	Location   int `json:"location"`
	Year       int `json:"year"`
	Kilometers int `json:"kilometers"`
	Power      int `json:"power"`

	OwnerSecond     int `json:"owner_Second Owner"`
	OwnerThird      int `json:"owner_Third Owner"`
	OwnerFourthPlus int `json:"owner_Fourth Owner Or More"`
	OwnerUnknown    int `json:"owner_Unknown"`
}

// Owner decodes the indicator fields back into an owner value.
func (r PredictionRequest) Owner() Owner {
	switch {
	case r.OwnerSecond == 1:
		return OwnerSecond
	case r.OwnerThird == 1:
		return OwnerThird
	case r.OwnerFourthPlus == 1:
		return OwnerFourthPlus
	case r.OwnerUnknown == 1:
		return OwnerUnknown
	default:
		return OwnerFirst
	}
}

// PredictionResponse is the body returned by POST /predict.
type PredictionResponse struct {
	Prediction *float64 `json:"prediction,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Valuation is a recorded successful prediction.
type Valuation struct {
	ID           int64     `json:"id" db:"id"`
	SessionID    string    `json:"session_id" db:"session_id"`
	BrandCode    int       `json:"brand_code" db:"brand_code"`
	BrandName    string    `json:"brand_name" db:"brand_name"`
	ModelCode    int       `json:"model_code" db:"model_code"`
	ModelName    string    `json:"model_name" db:"model_name"`
	LocationCode int       `json:"location_code" db:"location_code"`
	LocationName string    `json:"location_name" db:"location_name"`
	Year         int       `json:"year" db:"year"`
	Kilometers   int       `json:"kilometers" db:"kilometers"`
	Power        int       `json:"power" db:"power"`
	Owner        Owner     `json:"owner" db:"owner"`
	Price        float64   `json:"price" db:"price"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// NewValuation builds a valuation record, resolving names through the catalog
// when one is available.
func NewValuation(sessionID string, req PredictionRequest, price float64, catalog *Catalog) Valuation {
	v := Valuation{
		SessionID:    sessionID,
		BrandCode:    req.Brand,
		ModelCode:    req.Model,
		LocationCode: req.Location,
		Year:         req.Year,
		Kilometers:   req.Kilometers,
		Power:        req.Power,
		Owner:        req.Owner(),
		Price:        price,
		CreatedAt:    time.Now().UTC(),
	}

	if catalog != nil {
		v.BrandName, _ = catalog.BrandName(req.Brand)
		v.ModelName, _ = catalog.ModelName(req.Model)
		v.LocationName, _ = catalog.LocationName(req.Location)
	} else if req.Location == LocationOther {
		v.LocationName = LocationOtherLabel
	}

	return v
}
