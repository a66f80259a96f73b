package entity

import "errors"

// Domain errors returned by the trust score engine. Callers match them with errors.Is.
var (
	ErrInvalidSupplier       = errors.New("invalid supplier")
	ErrMissingRequiredField  = errors.New("missing required field")
	ErrInvalidAdjustmentType = errors.New("invalid adjustment type")
	ErrInvalidAdjustment     = errors.New("invalid adjustment")
	ErrEvidenceRead          = errors.New("evidence read failed")
	ErrVersionConflict       = errors.New("score record version conflict")
	ErrScoreNotFound         = errors.New("score record not found")
	ErrDrugBatchNotFound     = errors.New("drug batch not found")
)
