package models

import "errors"

// Sentinel errors for every precondition the ledger enforces. Services wrap
// these with fmt.Errorf("...: %w", err); handlers map them to HTTP statuses
// with errors.Is.
var (
	// Authorization
	ErrUnauthorized = errors.New("caller lacks the required role")

	// State
	ErrInvalidState          = errors.New("market is in the wrong state for this operation")
	ErrMarketNotActive       = errors.New("market is not active or has expired")
	ErrMarketNotExpired      = errors.New("market has not yet expired")
	ErrAlreadySettled        = errors.New("market has already been settled")
	ErrAlreadyAttested       = errors.New("sentiment has already been recorded")
	ErrAlreadyFulfilled      = errors.New("randomness request has already been fulfilled")
	ErrRandomnessRequested   = errors.New("randomness has already been requested")
	ErrRandomnessNotFound    = errors.New("no randomness request exists for this market")
	ErrNotReadyForSettlement = errors.New("sentiment or randomness is missing")

	// Validation
	ErrStatementEmpty         = errors.New("statement cannot be empty")
	ErrStatementTooLong       = errors.New("statement exceeds 280 characters")
	ErrInvalidDuration        = errors.New("duration must be 24h, 3d, 7d, or 14d")
	ErrStakeTooSmall          = errors.New("stake amount is below the minimum stake")
	ErrStakeTooLarge          = errors.New("stake amount exceeds the maximum stake")
	ErrLocatorTooLong         = errors.New("content locator exceeds 64 characters")
	ErrInvalidTextHash        = errors.New("text hash must be 32 hex-encoded bytes")
	ErrInvalidScore           = errors.New("score must be between 0 and 100")
	ErrInvalidConfidence      = errors.New("confidence must be LOW, MEDIUM, or HIGH")
	ErrInvalidPrediction      = errors.New("prediction must be between 0 and 100")
	ErrInvalidRandomValue     = errors.New("random value must be 32 bytes")
	ErrDuplicateMarket        = errors.New("a market with this id already exists")
	ErrDuplicateOpinion       = errors.New("staker already has an opinion in this market")
	ErrDuplicateReaction      = errors.New("reactor already has a reaction on this opinion")
	ErrSelfReaction           = errors.New("cannot react to your own opinion")
	ErrInvalidReactionAmount  = errors.New("reaction amount must be positive")
	ErrInvalidReactionType    = errors.New("reaction type must be BACK or SLASH")

	// Resource
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrCurrencyMismatch   = errors.New("holding currency does not match the registered currency")
	ErrArithmeticOverflow = errors.New("arithmetic overflow")

	// Concurrency
	ErrSettlementInProgress = errors.New("a settlement batch is already running for this market")

	// Configuration
	ErrConfigExists   = errors.New("program config is already initialized")
	ErrConfigNotFound = errors.New("program config has not been initialized")
)
