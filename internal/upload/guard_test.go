package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testPolicy() Policy {
	return NewPolicy(5*1024*1024, ".pdf,.docx,.xlsx")
}

func TestNewPolicyNormalizesExtensions(t *testing.T) {
	p := NewPolicy(100, " PDF , .DocX ,, xlsx ")
	assert.True(t, p.AllowedExt[".pdf"])
	assert.True(t, p.AllowedExt[".docx"])
	assert.True(t, p.AllowedExt[".xlsx"])
	assert.Len(t, p.AllowedExt, 3)
}

func TestIsAllowed(t *testing.T) {
	p := testPolicy()

	cases := []struct {
		name     string
		filename string
		size     int64
		ok       bool
	}{
		{"pdf under limit", "timesheet.pdf", 1024, true},
		{"docx at limit", "notes.docx", 5 * 1024 * 1024, true},
		{"extension case-insensitive", "REPORT.PDF", 10, true},
		{"exe refused", "malware.exe", 10, false},
		{"no extension refused", "README", 10, false},
		{"over limit refused", "big.pdf", 5*1024*1024 + 1, false},
		{"double extension uses last", "notes.pdf.exe", 10, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, reason := p.IsAllowed(tc.filename, tc.size)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Empty(t, reason)
			} else {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestIsAllowedReasonNamesTheRule(t *testing.T) {
	p := testPolicy()

	_, reason := p.IsAllowed("script.sh", 10)
	assert.Contains(t, reason, `".sh"`)
	assert.Contains(t, reason, ".pdf")

	_, reason = p.IsAllowed("big.pdf", 6*1024*1024)
	assert.Contains(t, reason, "exceeds")
}

func TestIsAllowedIsPure(t *testing.T) {
	p := testPolicy()
	ok1, r1 := p.IsAllowed("a.pdf", 100)
	ok2, r2 := p.IsAllowed("a.pdf", 100)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, r1, r2)
}
