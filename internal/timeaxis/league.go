package timeaxis

// DefaultGreaterLeagueIDs are the upstream ids of the two greater leagues.
var DefaultGreaterLeagueIDs = []string{
	"6805db0cac48194de3cd3fe4",
	"6805db0cac48194de3cd3fe5",
}

const (
	greaterFirstDay = 1
	greaterLastDay  = 255
	lesserFirstDay  = 2
	lesserLastDay   = 240
)

// League is the parity class of a league's calendar. Greater leagues play
// on odd days, lesser leagues on even days.
type League struct {
	Greater bool
}

// ForID resolves the parity class of a league id.
func ForID(leagueID string, greaterIDs []string) League {
	for _, id := range greaterIDs {
		if id == leagueID {
			return League{Greater: true}
		}
	}
	return League{}
}

// FirstDay is the league's first valid game day.
func (l League) FirstDay() int {
	if l.Greater {
		return greaterFirstDay
	}
	return lesserFirstDay
}

// LastDay is the league's last valid game day.
func (l League) LastDay() int {
	if l.Greater {
		return greaterLastDay
	}
	return lesserLastDay
}

// Valid reports whether day is a game day of the league.
func (l League) Valid(day int) bool {
	return day >= l.FirstDay() && day <= l.LastDay() && l.parityOK(day)
}

// NormalizeStart moves day forward to the nearest valid day, flooring at the
// league's first day.
func (l League) NormalizeStart(day int) int {
	if day < l.FirstDay() {
		return l.FirstDay()
	}
	if !l.parityOK(day) {
		return day + 1
	}
	return day
}

// NormalizeEnd moves day back to the nearest valid day, capping at the
// league's last day. A day before the first game day becomes the day just
// before it, which leaves that season empty.
func (l League) NormalizeEnd(day int) int {
	if day > l.LastDay() {
		return l.LastDay()
	}
	if day < l.FirstDay() {
		return l.FirstDay() - 1
	}
	if !l.parityOK(day) {
		return day - 1
	}
	return day
}

func (l League) parityOK(day int) bool {
	odd := day%2 != 0
	return odd == l.Greater
}
