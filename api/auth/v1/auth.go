// Package authv1 defines the adaptiveauth.auth.v1 gRPC services: risk-gated login, challenge
// redemption, and the operator risk debug service. Messages travel as JSON (see api/codec).
package authv1

// LoginRequest is a password login. Coordinates are optional and must be given together.
type LoginRequest struct {
	Username          string   `json:"username"`
	Password          string   `json:"password"`
	DeviceFingerprint string   `json:"device_fingerprint,omitempty"`
	Latitude          *float64 `json:"latitude,omitempty"`
	Longitude         *float64 `json:"longitude,omitempty"`
}

// LoginResponse carries the decision. ChallengeId is set when Outcome is challenge_required.
type LoginResponse struct {
	Outcome            string `json:"outcome"`
	RiskScore          int32  `json:"risk_score"`
	RiskLevel          string `json:"risk_level"`
	ChallengeId        string `json:"challenge_id,omitempty"`
	ChallengeExpiresAt string `json:"challenge_expires_at,omitempty"`
	Message            string `json:"message,omitempty"`
}

type RedeemChallengeRequest struct {
	ChallengeId string `json:"challenge_id"`
	Code        string `json:"code"`
}

// RedeemChallengeResponse carries the redemption outcome. AttemptsRemaining is set for invalid_code.
type RedeemChallengeResponse struct {
	Outcome           string `json:"outcome"`
	AttemptsRemaining *int32 `json:"attempts_remaining,omitempty"`
	Message           string `json:"message,omitempty"`
}

type DebugAssessRiskRequest struct {
	Username          string   `json:"username"`
	OriginAddress     string   `json:"origin_address,omitempty"`
	DeviceFingerprint string   `json:"device_fingerprint,omitempty"`
	Latitude          *float64 `json:"latitude,omitempty"`
	Longitude         *float64 `json:"longitude,omitempty"`
}

type RiskSignal struct {
	Name     string `json:"name"`
	Flagged  bool   `json:"flagged"`
	Points   int32  `json:"points"`
	Weight   int32  `json:"weight"`
	Degraded bool   `json:"degraded,omitempty"`
}

type DebugAssessRiskResponse struct {
	RiskScore int32        `json:"risk_score"`
	RiskLevel string       `json:"risk_level"`
	Threshold int32        `json:"threshold"`
	Signals   []RiskSignal `json:"signals"`
}

func (x *LoginRequest) GetUsername() string {
	if x == nil {
		return ""
	}
	return x.Username
}

func (x *LoginRequest) GetPassword() string {
	if x == nil {
		return ""
	}
	return x.Password
}

func (x *LoginRequest) GetDeviceFingerprint() string {
	if x == nil {
		return ""
	}
	return x.DeviceFingerprint
}

func (x *RedeemChallengeRequest) GetChallengeId() string {
	if x == nil {
		return ""
	}
	return x.ChallengeId
}

func (x *RedeemChallengeRequest) GetCode() string {
	if x == nil {
		return ""
	}
	return x.Code
}

func (x *DebugAssessRiskRequest) GetUsername() string {
	if x == nil {
		return ""
	}
	return x.Username
}
