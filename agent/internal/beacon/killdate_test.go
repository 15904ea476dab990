package beacon

import (
	"testing"
	"time"

	"beacon/agent/internal/fault"
)

func TestKillDate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		in      string
		expired bool
		wantErr bool
	}{
		{"", false, false},
		{"2000-01-01", true, false},
		{now.AddDate(1, 0, 0).Format("2006-01-02"), false, false},
		{"not-a-date", false, true},
		{"2000-13-40", false, true},
		{"01/02/2000", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			kd, err := ParseKillDate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if err != nil && !fault.Is(err, fault.KindConfiguration) {
				t.Fatalf("want configuration fault, got %v", err)
			}
			if got := kd.Expired(now); got != tt.expired {
				t.Fatalf("Expired = %v, want %v", got, tt.expired)
			}
		})
	}
}

func TestKillDateBoundary(t *testing.T) {
	kd, _ := ParseKillDate("2030-06-15")
	day := time.Date(2030, 6, 15, 0, 0, 0, 0, time.Local)
	if kd.Expired(day) {
		t.Fatal("expired at exactly midnight")
	}
	if !kd.Expired(day.Add(time.Second)) {
		t.Fatal("not expired after midnight")
	}
	if kd.String() != "2030-06-15" || (KillDate{}).String() != "none" {
		t.Fatalf("String = %s", kd)
	}
}
