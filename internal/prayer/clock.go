package prayer

import "time"

// defaultIqamaDelay applies to prayers missing from an IqamaDelays table.
const defaultIqamaDelay = 15

// IqamaDelays maps each prayer to the minutes between its time and Iqama.
type IqamaDelays map[Name]int

// DefaultIqamaDelays returns the stock delay table.
func DefaultIqamaDelays() IqamaDelays {
	return IqamaDelays{
		Fajr:    20,
		Dohr:    15,
		Asr:     15,
		Maghreb: 10,
		Isha:    15,
	}
}

// Delay returns the Iqama delay for n in minutes. Chorok has none.
func (d IqamaDelays) Delay(n Name) int {
	if !n.IsPrayer() {
		return 0
	}
	if v, ok := d[n]; ok {
		if v < 0 {
			return 0
		}
		return v
	}
	return defaultIqamaDelay
}

// Clone returns an independent copy.
func (d IqamaDelays) Clone() IqamaDelays {
	out := make(IqamaDelays, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// State is the clock verdict for one instant.
type State struct {
	Current    Name
	HasCurrent bool

	Next           Name
	HasNext        bool
	NextIsTomorrow bool
	NextTime       TimeOfDay

	SecondsUntilNext int

	IqamaActive           bool
	SecondsUntilIqamaEnds int

	// NoData is set when the schedule has no known entry at all.
	NoData bool
}

// Countdown returns the seconds from now until targetMinute, an absolute
// minute offset from the midnight that starts now's day. Targets past
// midnight are expressed as MinutesPerDay + minutes. The result is never
// negative.
func Countdown(now time.Time, targetMinute int) int {
	nowSec := now.Hour()*3600 + now.Minute()*60 + now.Second()
	rem := targetMinute*60 - nowSec
	if rem < 0 {
		return 0
	}
	return rem
}

// Evaluate derives the current and next prayer for now from s. Only known
// entries take part; now is read in its own location.
func Evaluate(s DailySchedule, now time.Time, delays IqamaDelays) State {
	defined := s.Defined()
	if len(defined) == 0 {
		return State{NoData: true}
	}

	nowMin := now.Hour()*60 + now.Minute()

	var (
		st          State
		currentTime TimeOfDay
	)
	for _, e := range defined {
		if e.Time.Minutes() <= nowMin {
			st.Current, st.HasCurrent = e.Name, true
			currentTime = e.Time
		}
	}

	target := -1
	for _, e := range defined {
		if e.Time.Minutes() > nowMin {
			st.Next, st.NextTime = e.Name, e.Time
			target = e.Time.Minutes()
			break
		}
	}
	if target < 0 {
		first := defined[0]
		st.Next, st.NextTime = first.Name, first.Time
		st.NextIsTomorrow = true
		target = MinutesPerDay + first.Time.Minutes()
	}
	st.HasNext = true
	st.SecondsUntilNext = Countdown(now, target)

	if st.HasCurrent {
		if d := delays.Delay(st.Current); d > 0 {
			st.SecondsUntilIqamaEnds = Countdown(now, currentTime.Minutes()+d)
			st.IqamaActive = st.SecondsUntilIqamaEnds > 0
		}
	}

	return st
}
