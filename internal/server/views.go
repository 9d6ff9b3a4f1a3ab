package server

import (
	"time"

	"github.com/smokyabdulrahman/salah-times/internal/clock"
	"github.com/smokyabdulrahman/salah-times/internal/prayer"
)

type stateView struct {
	Now              time.Time            `json:"now"`
	Location         string               `json:"location"`
	Source           string               `json:"source"`
	Stale            bool                 `json:"stale"`
	Degraded         bool                 `json:"degraded"`
	NoData           bool                 `json:"no_data"`
	Schedule         prayer.DailySchedule `json:"schedule"`
	Current          *prayer.Name         `json:"current"`
	Next             *nextView            `json:"next"`
	IqamaActive      bool                 `json:"iqama_active"`
	IqamaSecondsLeft int                  `json:"iqama_seconds_left"`
}

type nextView struct {
	Name        prayer.Name      `json:"name"`
	Time        prayer.TimeOfDay `json:"time"`
	Tomorrow    bool             `json:"tomorrow"`
	SecondsLeft int              `json:"seconds_left"`
	Countdown   string           `json:"countdown"`
}

func newStateView(st clock.State) stateView {
	v := stateView{
		Now:              st.Now,
		Location:         st.Location,
		Source:           st.Source,
		Stale:            st.Stale,
		Degraded:         st.Degraded,
		NoData:           st.NoData,
		Schedule:         st.Schedule,
		IqamaActive:      st.IqamaActive,
		IqamaSecondsLeft: st.SecondsUntilIqamaEnds,
	}
	if st.HasCurrent {
		cur := st.Current
		v.Current = &cur
	}
	if st.HasNext {
		v.Next = &nextView{
			Name:        st.Next,
			Time:        st.NextTime,
			Tomorrow:    st.NextIsTomorrow,
			SecondsLeft: st.SecondsUntilNext,
			Countdown:   prayer.FormatClock(st.SecondsUntilNext),
		}
	}
	return v
}

func iqamaView(d prayer.IqamaDelays) map[string]int {
	out := make(map[string]int)
	for _, n := range prayer.Order {
		if n.IsPrayer() {
			out[n.String()] = d.Delay(n)
		}
	}
	return out
}
