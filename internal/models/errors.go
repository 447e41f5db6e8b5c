package models

import "errors"

var (
	ErrInvalidSymbol      = errors.New("invalid symbol")
	ErrInvalidTimestamp   = errors.New("invalid timestamp")
	ErrInvalidBar         = errors.New("invalid bar (high < low)")
	ErrInvalidVolume      = errors.New("invalid volume")
	ErrInvalidRuleID      = errors.New("invalid rule ID")
	ErrNoConditions       = errors.New("rule must have at least one condition")
	ErrNoNarrative        = errors.New("rule must have a narrative template")
	ErrInvalidMetric      = errors.New("invalid metric")
	ErrInvalidOperator    = errors.New("invalid operator")
	ErrInvalidPriority    = errors.New("invalid priority")
	ErrNoKeywords         = errors.New("news condition must have at least one keyword")
	ErrUnknownAssetClass  = errors.New("unknown asset class")
	ErrInvalidNarrativeID = errors.New("invalid narrative ID")
)
