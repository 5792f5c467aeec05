package enrich

// HasTargetScript reports whether s contains a CJK unified ideograph.
func HasTargetScript(s string) bool {
	for _, r := range s {
		if r >= 0x4E00 && r <= 0x9FFF {
			return true
		}
	}
	return false
}
