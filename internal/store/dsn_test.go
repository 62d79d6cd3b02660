package store

import "testing"

func TestSqliteDSN(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"moncal.db", "moncal.db?_pragma=busy_timeout(5000)"},
		{"file:x?mode=memory", "file:x?mode=memory&_pragma=busy_timeout(5000)"},
		{"a.db?_pragma=busy_timeout(100)", "a.db?_pragma=busy_timeout(100)"},
	}
	for _, tt := range tests {
		if got := sqliteDSN(tt.in); got != tt.want {
			t.Errorf("sqliteDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
