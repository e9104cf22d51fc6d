package slot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func idPtr(v uint) *uint { return &v }

func TestClassify(t *testing.T) {
	asOf := time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)
	policy := Policy{HoldGraceWindow: 15 * time.Minute, StaffHoldsBlock: true}
	candidate := TimeRange{Date: "2025-11-01", Start: "20:00", End: "00:00"}

	cases := []struct {
		name   string
		holds  []Hold
		want   Outcome
		holder *uint
	}{
		{
			name: "no holds",
			want: Available,
		},
		{
			name: "unpaid pending is invisible",
			holds: []Hold{
				{BookingID: idPtr(1), Range: candidate, State: HoldInactive, Since: asOf.Add(-time.Minute)},
			},
			want: Available,
		},
		{
			name: "confirmed blocks",
			holds: []Hold{
				{BookingID: idPtr(2), Range: candidate, State: HoldConfirmed, Since: asOf.Add(-48 * time.Hour)},
			},
			want:   Blocked,
			holder: idPtr(2),
		},
		{
			name: "recent paid user hold blocks",
			holds: []Hold{
				{BookingID: idPtr(3), Range: candidate, State: HoldAwaitingApproval, Since: asOf.Add(-5 * time.Minute)},
			},
			want:   Blocked,
			holder: idPtr(3),
		},
		{
			name: "aged paid user hold is soft",
			holds: []Hold{
				{BookingID: idPtr(4), Range: candidate, State: HoldAwaitingApproval, Since: asOf.Add(-time.Hour)},
			},
			want:   SoftHeld,
			holder: idPtr(4),
		},
		{
			name: "staff hold is sticky",
			holds: []Hold{
				{BookingID: idPtr(5), Range: candidate, State: HoldAwaitingApproval, ByStaff: true, Since: asOf.Add(-time.Hour)},
			},
			want:   Blocked,
			holder: idPtr(5),
		},
		{
			name: "paid hold without booking blocks",
			holds: []Hold{
				{Range: candidate, State: HoldAwaitingApproval, Since: asOf.Add(-time.Hour)},
			},
			want: Blocked,
		},
		{
			name: "oldest soft holder wins",
			holds: []Hold{
				{BookingID: idPtr(7), Range: candidate, State: HoldAwaitingApproval, Since: asOf.Add(-time.Hour)},
				{BookingID: idPtr(6), Range: candidate, State: HoldAwaitingApproval, Since: asOf.Add(-2 * time.Hour)},
			},
			want:   SoftHeld,
			holder: idPtr(6),
		},
		{
			name: "blocked beats soft",
			holds: []Hold{
				{BookingID: idPtr(8), Range: candidate, State: HoldAwaitingApproval, Since: asOf.Add(-time.Hour)},
				{BookingID: idPtr(9), Range: candidate, State: HoldConfirmed, Since: asOf.Add(-time.Hour)},
			},
			want:   Blocked,
			holder: idPtr(9),
		},
		{
			name: "previous day continuation blocks",
			holds: []Hold{
				{BookingID: idPtr(10), Range: TimeRange{Date: "2025-10-31", Start: "22:00", End: "21:00"}, State: HoldConfirmed, Since: asOf},
			},
			want:   Blocked,
			holder: idPtr(10),
		},
		{
			name: "non overlapping confirmed ignored",
			holds: []Hold{
				{BookingID: idPtr(11), Range: TimeRange{Date: "2025-11-01", Start: "18:00", End: "20:00"}, State: HoldConfirmed, Since: asOf},
			},
			want: Available,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(candidate, tc.holds, policy, asOf)
			assert.Equal(t, tc.want, got.Outcome)
			assert.Equal(t, tc.holder, got.BlockingBookingID)
		})
	}
}

func TestStaffHoldsBlockCanBeDisabled(t *testing.T) {
	asOf := time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)
	policy := Policy{HoldGraceWindow: time.Minute, StaffHoldsBlock: false}
	hold := Hold{BookingID: idPtr(1), State: HoldAwaitingApproval, ByStaff: true, Since: asOf.Add(-time.Hour)}

	assert.Equal(t, SoftHeld, policy.Evaluate(hold, asOf))
}
