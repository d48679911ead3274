package aggregate

import "time"

// MatchResult 1:1 比对结果，IsMatch == (Confidence >= Threshold)
type MatchResult struct {
	UserID     string    `json:"userId"`
	IsMatch    bool      `json:"isMatch"`
	Confidence float64   `json:"confidence"`
	Threshold  float64   `json:"threshold"`
	Timestamp  time.Time `json:"timestamp"`
	Message    string    `json:"message"`
}

// NewMatchResult builds a result whose match flag is derived from the threshold.
func NewMatchResult(userID string, confidence, threshold float64, at time.Time) *MatchResult {
	res := &MatchResult{
		UserID:     userID,
		IsMatch:    confidence >= threshold,
		Confidence: confidence,
		Threshold:  threshold,
		Timestamp:  at,
	}
	if res.IsMatch {
		res.Message = "voice verification successful"
	} else {
		res.Message = "voice verification failed"
	}
	return res
}

// Candidate 1:N 识别的最佳候选
type Candidate struct {
	UserID     string  `json:"userId"`
	Confidence float64 `json:"confidence"`
}

// SearchResult 1:N 搜索结果; Best 为空表示没有候选
type SearchResult struct {
	Best       *Candidate `json:"best,omitempty"`
	Candidates int        `json:"candidates"`
	Threshold  float64    `json:"threshold"`
}

// Matched reports whether the best candidate clears the threshold.
func (r *SearchResult) Matched() bool {
	return r != nil && r.Best != nil && r.Best.Confidence >= r.Threshold
}

// EnrollmentInfo 录入信息
type EnrollmentInfo struct {
	UserID       string     `json:"userId"`
	TenantID     string     `json:"tenantId,omitempty"`
	EnrolledAt   *time.Time `json:"enrollmentDate,omitempty"`
	IsActive     bool       `json:"isActive"`
	TemplateSize int        `json:"templateSize"`
	Message      string     `json:"message,omitempty"`
}

// TemplateInfo 模板概要
type TemplateInfo struct {
	UserID       string     `json:"userId"`
	IsEnrolled   bool       `json:"isEnrolled"`
	EnrolledAt   *time.Time `json:"enrollmentDate,omitempty"`
	TemplateSize int        `json:"templateSize"`
	LastUpdated  time.Time  `json:"lastUpdated"`
}

// AuthenticationResult 声纹登录结果
type AuthenticationResult struct {
	UserID          string    `json:"userId"`
	Authenticated   bool      `json:"isAuthenticated"`
	Confidence      float64   `json:"confidence"`
	Token           string    `json:"token"`
	AuthenticatedAt time.Time `json:"authenticatedAt"`
	ExpiresIn       int64     `json:"expiresIn"` // 秒
}

// SecurityStatus 声纹安全状态
type SecurityStatus struct {
	UserID               string     `json:"userId"`
	VoiceSecurityEnabled bool       `json:"voiceSecurityEnabled"`
	HasPassphrase        bool       `json:"hasVoicePassphrase"`
	LastUpdate           *time.Time `json:"lastVoiceUpdate,omitempty"`
	SecurityLevel        int        `json:"securityLevel"`
}

// VoiceMetrics 验证统计
type VoiceMetrics struct {
	UserID                  string     `json:"userId"`
	TotalVerifications      int        `json:"totalVerifications"`
	SuccessfulVerifications int        `json:"successfulVerifications"`
	AverageConfidence       float64    `json:"averageConfidence"`
	LastVerification        *time.Time `json:"lastVerification,omitempty"`
	SuccessRate             float64    `json:"successRate"`
}
