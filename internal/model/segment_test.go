package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSegmentRuleMatches(t *testing.T) {
	ana := Contact{Status: ContactStatusActive, Channel: "whatsapp", Tags: []string{"vip", "sp"}}

	tests := []struct {
		name string
		rule SegmentRule
		want bool
	}{
		{"status in", SegmentRule{Field: "status", Op: "in", Value: []string{"active", "blocked"}}, true},
		{"status not in", SegmentRule{Field: "status", Op: "in", Value: []string{"opted_out"}}, false},
		{"channel in", SegmentRule{Field: "channel", Op: "in", Value: []string{"whatsapp"}}, true},
		{"tags any", SegmentRule{Field: "tags", Op: "any", Value: []string{"lead", "vip"}}, true},
		{"tags any none", SegmentRule{Field: "tags", Op: "any", Value: []string{"lead"}}, false},
		{"tags all", SegmentRule{Field: "tags", Op: "all", Value: []string{"vip", "sp"}}, true},
		{"tags all missing one", SegmentRule{Field: "tags", Op: "all", Value: []string{"vip", "rj"}}, false},
		{"unknown op", SegmentRule{Field: "tags", Op: "in", Value: []string{"vip"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule.Matches(ana))
		})
	}
}

func TestSegmentMatchesEveryRule(t *testing.T) {
	seg := &Segment{Rules: []SegmentRule{
		{Field: "tags", Op: "any", Value: []string{"vip"}},
		{Field: "channel", Op: "in", Value: []string{"sms"}},
	}}

	assert.False(t, seg.Matches(Contact{Channel: "whatsapp", Tags: []string{"vip"}}))
	assert.True(t, seg.Matches(Contact{Channel: "sms", Tags: []string{"vip"}}))
	assert.True(t, (&Segment{}).Matches(Contact{}), "no rules match everyone")
}

func TestSegmentRuleValidate(t *testing.T) {
	assert.NoError(t, SegmentRule{Field: "status", Op: "in"}.Validate())
	assert.NoError(t, SegmentRule{Field: "tags", Op: "all"}.Validate())
	assert.Error(t, SegmentRule{Field: "status", Op: "any"}.Validate())
	assert.Error(t, SegmentRule{Field: "country", Op: "in"}.Validate())
}

func TestSenderStates(t *testing.T) {
	assert.True(t, SenderStateConnected.CanSend())
	for _, s := range []SenderState{SenderStateNeedsLogin, SenderStateDisconnected, SenderStateBlocked} {
		assert.True(t, s.Valid(), s)
		assert.False(t, s.CanSend(), s)
	}
	assert.False(t, SenderState("asleep").Valid())
}
