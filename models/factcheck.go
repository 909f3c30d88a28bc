package models

import "time"

// FactCheckSource is a citation returned by the external judge.
type FactCheckSource struct {
	URL    string `bson:"url" json:"url"`
	Title  string `bson:"title,omitempty" json:"title,omitempty"`
	Domain string `bson:"domain,omitempty" json:"domain,omitempty"`
}

// FactCheck is the verification record for a message. At most one exists per
// message; retried verifications overwrite the previous attempt.
// ConfidenceScore, when present, lies in [0, 1].
type FactCheck struct {
	ID                 string            `bson:"_id" json:"id"`
	MessageID          string            `bson:"messageId" json:"messageId"`
	Claim              string            `bson:"claim" json:"claim"`
	VerificationResult string            `bson:"verificationResult,omitempty" json:"verificationResult,omitempty"`
	ConfidenceScore    *float64          `bson:"confidenceScore,omitempty" json:"confidenceScore,omitempty"`
	Sources            []FactCheckSource `bson:"sources,omitempty" json:"sources,omitempty"`
	CreatedAt          time.Time         `bson:"createdAt" json:"createdAt"`
}
