package testutil

// String builds the optional string filters the repository queries take
func String(s string) *string {
	return &s
}

// Int builds the optional numeric filters, such as result limits
func Int(i int) *int {
	return &i
}
