package aggregate

// Scope 候选用户范围，TenantID 为空表示不限租户
type Scope struct {
	TenantID string
	UserIDs  []string
}

// Allows reports whether the record belongs to the scope.
func (s Scope) Allows(r *BiometricRecord) bool {
	if r == nil {
		return false
	}
	if s.TenantID != "" && r.TenantID != s.TenantID {
		return false
	}
	if len(s.UserIDs) == 0 {
		return true
	}
	for _, id := range s.UserIDs {
		if id == r.UserID {
			return true
		}
	}
	return false
}
