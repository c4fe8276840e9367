package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"qwesade/internal/config"
	"qwesade/internal/domain"
	"qwesade/internal/events"
	"qwesade/internal/models"
	"qwesade/internal/service"
	"qwesade/internal/store"
)

var (
	testSlots = []string{"Весь день", "10:00–12:00", "13:00–15:00", "16:00–18:00", "19:00–21:00"}
	testNow   = time.Date(2026, 10, 14, 12, 0, 0, 0, time.Local)
	walker    = models.Requester{ID: 100, Username: "walker", Name: "Walker"}
)

func testConfig() config.BookingConfig {
	return config.BookingConfig{
		Services:      []string{"Walk", "Кафе", "Кино"},
		TimeSlots:     testSlots,
		WholeDayLabel: "Весь день",
		BusyPolicy:    config.BusyPolicyLedger,
		AgendaDays:    60,
		AgendaLimit:   20,
		RecentLimit:   5,
	}
}

type env struct {
	machine  *Machine
	ledger   *store.Ledger
	bookings *store.Bookings
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	logger := zerolog.Nop()

	ledger, err := store.NewLedger(ctx, store.NewMemoryWorksheet("Calendar"), testSlots, "Весь день", &logger)
	require.NoError(t, err)
	bookings, err := store.NewBookings(ctx, store.NewMemoryWorksheet("Bookings"))
	require.NoError(t, err)

	svc := service.NewBookingService(ledger, bookings, events.NewEventBus(), testConfig(), &logger)
	m := NewMachine(svc, testConfig())
	m.now = func() time.Time { return testNow }
	return &env{machine: m, ledger: ledger, bookings: bookings}
}

func (e *env) run(t *testing.T, sess *models.Session, inputs ...Input) Reply {
	t.Helper()
	var r Reply
	for _, in := range inputs {
		r = e.machine.Handle(context.Background(), sess, walker, in)
	}
	return r
}

func action(a string) Input { return Input{Action: a} }
func text(s string) Input   { return Input{Text: s} }

func TestEndToEndBooking(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	book := func() Reply {
		sess := models.NewSession(walker.ID)
		e.machine.Start(sess)
		return e.run(t, sess,
			action("svc:0"),
			action("date:tomorrow"),
			action("time:1"),
			text("Center"),
			text("none"),
			action("confirm"),
		)
	}

	r := book()
	require.NoError(t, r.Err)
	require.NotNil(t, r.Booking)
	assert.Equal(t, models.StatusNew, r.Booking.Status)
	assert.Equal(t, "Walk", r.Booking.Service)
	assert.Equal(t, "2026-10-15", r.Booking.DateISO)
	assert.Equal(t, "10:00–12:00", r.Booking.TimeSlot)
	assert.Equal(t, "Center", r.Booking.District)
	assert.Empty(t, r.Booking.Wishes)
	assert.Equal(t, KeyboardMenu, r.Keyboard)

	stored, err := e.bookings.Get(ctx, r.Booking.RequestID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, stored.Status)

	occupied, err := e.ledger.IsOccupied(ctx, "2026-10-15", "10:00–12:00")
	require.NoError(t, err)
	assert.True(t, occupied)

	again := book()
	assert.ErrorIs(t, again.Err, models.ErrSlotConflict)
	assert.Nil(t, again.Booking)
	assert.Contains(t, again.Text, textSlotTaken)
	assert.Contains(t, again.Text, "13:00–15:00")
	assert.NotContains(t, again.Text, "• Весь день")

	all, err := e.bookings.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCommitClearsSession(t *testing.T) {
	e := newEnv(t)
	sess := models.NewSession(walker.ID)
	e.machine.Start(sess)

	e.run(t, sess, action("svc:1"), action("date:today"), text("11:30-17:45"), text("Центр"), text("кофе"))
	assert.Equal(t, models.StepConfirming, sess.Step)
	assert.Equal(t, "11:30–17:45", sess.Draft.TimeSlot)
	assert.Equal(t, "кофе", sess.Draft.Wishes)

	r := e.run(t, sess, action("confirm"))
	require.NotNil(t, r.Booking)
	assert.False(t, sess.Active())
	assert.Equal(t, models.Draft{}, sess.Draft)
}

func TestTimeEntry(t *testing.T) {
	e := newEnv(t)

	at := func() *models.Session {
		sess := models.NewSession(walker.ID)
		e.machine.Start(sess)
		e.run(t, sess, action("svc:0"), action("date:tomorrow"))
		require.Equal(t, models.StepChoosingTime, sess.Step)
		return sess
	}

	t.Run("WholeDayText", func(t *testing.T) {
		sess := at()
		e.run(t, sess, text("весь день"))
		assert.Equal(t, models.StepGettingDistrict, sess.Step)
		assert.Equal(t, "Весь день", sess.Draft.TimeSlot)
	})

	t.Run("StartThenEnd", func(t *testing.T) {
		sess := at()
		r := e.run(t, sess, text("11.30"))
		assert.Equal(t, models.StepGettingTimeEnd, sess.Step)
		assert.Equal(t, textTimeEnd, r.Text)

		r = e.run(t, sess, text("10:00"))
		assert.Equal(t, models.StepGettingTimeEnd, sess.Step)
		assert.Equal(t, textBadInterval, r.Text)

		e.run(t, sess, text("17:45"))
		assert.Equal(t, models.StepGettingDistrict, sess.Step)
		assert.Equal(t, "11:30–17:45", sess.Draft.TimeSlot)
	})

	t.Run("IntervalButton", func(t *testing.T) {
		sess := at()
		e.run(t, sess, action(ActionInterval))
		assert.Equal(t, models.StepGettingTimeStart, sess.Step)

		r := e.run(t, sess, text("утром"))
		assert.Equal(t, models.StepGettingTimeStart, sess.Step)
		assert.Equal(t, textBadStart, r.Text)

		e.run(t, sess, text("09:00 — 10:30"))
		assert.Equal(t, models.StepGettingDistrict, sess.Step)
		assert.Equal(t, "09:00–10:30", sess.Draft.TimeSlot)
	})

	t.Run("Garbage", func(t *testing.T) {
		sess := at()
		r := e.run(t, sess, text("когда-нибудь"))
		assert.Equal(t, models.StepChoosingTime, sess.Step)
		assert.Equal(t, textBadTime, r.Text)
	})

	t.Run("ReversedInterval", func(t *testing.T) {
		sess := at()
		r := e.run(t, sess, text("17:45-11:30"))
		assert.Equal(t, models.StepChoosingTime, sess.Step)
		assert.Equal(t, textBadInterval, r.Text)
	})
}

func TestDateEntry(t *testing.T) {
	e := newEnv(t)

	at := func() *models.Session {
		sess := models.NewSession(walker.ID)
		e.machine.Start(sess)
		e.run(t, sess, action("svc:0"))
		require.Equal(t, models.StepChoosingDate, sess.Step)
		return sess
	}

	t.Run("Typed", func(t *testing.T) {
		sess := at()
		e.run(t, sess, text("20.10"))
		assert.Equal(t, models.StepChoosingTime, sess.Step)
		assert.Equal(t, "2026-10-20", sess.Draft.DateISO)
		assert.Equal(t, "20.10", sess.Draft.DateText)
	})

	t.Run("Unparseable", func(t *testing.T) {
		sess := at()
		r := e.run(t, sess, text("30.02"))
		assert.Equal(t, models.StepChoosingDate, sess.Step)
		assert.Equal(t, textBadDate, r.Text)
	})

	t.Run("PastTyped", func(t *testing.T) {
		sess := at()
		r := e.run(t, sess, text("01.10.2026"))
		assert.Equal(t, models.StepChoosingDate, sess.Step)
		assert.Equal(t, textPastDate, r.Text)
	})

	t.Run("Weekend", func(t *testing.T) {
		sess := at()
		e.run(t, sess, action("date:weekend"))
		assert.Equal(t, "2026-10-17", sess.Draft.DateISO)
		assert.Equal(t, "Ближайшие выходные", sess.Draft.DateText)
	})

	t.Run("Calendar", func(t *testing.T) {
		sess := at()
		r := e.run(t, sess, action("date:pick"))
		assert.True(t, r.Edit)
		assert.Equal(t, "2026-10", sess.CalendarMonth)
		assert.Equal(t, models.StepChoosingDate, sess.Step)

		r = e.run(t, sess, action("cal:nav:2026-11"))
		assert.True(t, r.Edit)
		assert.Equal(t, "2026-11", sess.CalendarMonth)
		assert.Equal(t, "Ноя 2026", r.Options[0][1].Label)

		r = e.run(t, sess, action("cal:pick:2026-10-01"))
		assert.Equal(t, textPastDate, r.Notice)
		assert.Empty(t, r.Text)
		assert.Equal(t, models.StepChoosingDate, sess.Step)

		e.run(t, sess, action("cal:pick:2026-11-05"))
		assert.Equal(t, models.StepChoosingTime, sess.Step)
		assert.Equal(t, "2026-11-05", sess.Draft.DateISO)
		assert.Equal(t, "05.11.2026", sess.Draft.DateText)
		assert.Empty(t, sess.CalendarMonth)
	})

	t.Run("BackFromCalendar", func(t *testing.T) {
		sess := at()
		e.run(t, sess, action("date:pick"))
		r := e.run(t, sess, action(ActionBack))
		assert.Equal(t, models.StepChoosingDate, sess.Step)
		assert.Equal(t, textDate, r.Text)

		r = e.run(t, sess, action(ActionBack))
		assert.Equal(t, models.StepChoosingService, sess.Step)
		assert.Equal(t, textService, r.Text)
	})
}

func TestBackNavigation(t *testing.T) {
	e := newEnv(t)
	sess := models.NewSession(walker.ID)
	e.machine.Start(sess)
	e.run(t, sess, action("svc:0"), action("date:tomorrow"), text("11:00"), text("12:00"), text("Центр"), text("нет"))
	require.Equal(t, models.StepConfirming, sess.Step)

	want := []models.Step{
		models.StepGettingWishes,
		models.StepGettingDistrict,
		models.StepChoosingTime,
		models.StepChoosingDate,
		models.StepChoosingService,
		models.StepIdle,
	}
	for _, step := range want {
		e.run(t, sess, action(ActionBack))
		assert.Equal(t, step, sess.Step)
	}

	sess = models.NewSession(walker.ID)
	e.machine.Start(sess)
	e.run(t, sess, action("svc:0"), action("date:tomorrow"), text("11:00"))
	require.Equal(t, models.StepGettingTimeEnd, sess.Step)
	e.run(t, sess, action(ActionBack))
	assert.Equal(t, models.StepGettingTimeStart, sess.Step)
	e.run(t, sess, action(ActionBack))
	assert.Equal(t, models.StepChoosingTime, sess.Step)
}

func TestCancelAndEdit(t *testing.T) {
	e := newEnv(t)
	sess := models.NewSession(walker.ID)
	e.machine.Start(sess)
	e.run(t, sess, action("svc:0"), action("date:tomorrow"))

	r := e.run(t, sess, action(ActionCancel))
	assert.False(t, sess.Active())
	assert.Equal(t, models.Draft{}, sess.Draft)
	assert.Equal(t, textCancelled, r.Text)
	assert.Equal(t, KeyboardMenu, r.Keyboard)

	e.machine.Start(sess)
	e.run(t, sess, action("svc:2"), action("date:tomorrow"), action("time:3"), text("Центр"), text("-"))
	require.Equal(t, models.StepConfirming, sess.Step)
	assert.Contains(t, Summary(sess.Draft), "• Пожелания: —")

	r = e.run(t, sess, action(ActionEdit))
	assert.Equal(t, models.StepChoosingService, sess.Step)
	assert.Equal(t, models.Draft{}, sess.Draft)
	assert.Equal(t, textRestart, r.Notice)
}

func TestStaleButtons(t *testing.T) {
	e := newEnv(t)
	sess := models.NewSession(walker.ID)

	r := e.run(t, sess, action("svc:0"))
	assert.Equal(t, textStaleButton, r.Notice)
	assert.False(t, sess.Active())

	e.machine.Start(sess)
	r = e.run(t, sess, action("svc:99"))
	assert.Equal(t, textStaleButton, r.Notice)
	assert.Equal(t, models.StepChoosingService, sess.Step)

	r = e.run(t, sess, action(ActionNoop))
	assert.Empty(t, r.Text)
	assert.Empty(t, r.Notice)
}

func TestTimePromptHidesBusySlots(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	_, err := e.ledger.MarkSlot(ctx, "2026-10-15", "10:00–12:00", "busy")
	require.NoError(t, err)

	sess := models.NewSession(walker.ID)
	e.machine.Start(sess)
	r := e.run(t, sess, action("svc:0"), action("date:tomorrow"))

	var labels []string
	for _, row := range r.Options {
		for _, o := range row {
			labels = append(labels, o.Label)
		}
	}
	assert.NotContains(t, labels, "10:00–12:00")
	assert.NotContains(t, labels, "Весь день")
	assert.Contains(t, labels, "13:00–15:00")
	assert.Contains(t, labels, "⏱ Выбрать интервал")
}

type mockBookingService struct {
	mock.Mock
	domain.BookingService
}

func (m *mockBookingService) Commit(ctx context.Context, who models.Requester, d models.Draft) (*models.Booking, error) {
	args := m.Called(ctx, who, d)
	b, _ := args.Get(0).(*models.Booking)
	return b, args.Error(1)
}

func (m *mockBookingService) FreeSlots(ctx context.Context, date string) ([]string, error) {
	args := m.Called(ctx, date)
	s, _ := args.Get(0).([]string)
	return s, args.Error(1)
}

func TestCommitStoreFailure(t *testing.T) {
	svc := new(mockBookingService)
	svc.On("Commit", mock.Anything, walker, mock.Anything).
		Return(nil, errors.Join(models.ErrStoreUnavailable, errors.New("quota")))

	m := NewMachine(svc, testConfig())
	sess := models.NewSession(walker.ID)
	sess.Step = models.StepConfirming
	sess.Draft = models.Draft{Service: "Walk", DateISO: "2026-10-15", TimeSlot: "10:00–12:00"}

	r := m.Handle(context.Background(), sess, walker, action(ActionConfirm))
	assert.ErrorIs(t, r.Err, models.ErrStoreUnavailable)
	assert.Equal(t, textStoreFailed, r.Text)
	assert.False(t, sess.Active())
	svc.AssertExpectations(t)
}

func TestCalendarLayout(t *testing.T) {
	busy := map[string]bool{"2026-02-14": true}
	rows := Calendar(2026, time.February, busy, testNow)

	require.Len(t, rows, 1+4+1)
	assert.Equal(t, "cal:nav:2026-01", rows[0][0].Action)
	assert.Equal(t, "Фев 2026", rows[0][1].Label)
	assert.Equal(t, "cal:nav:2026-03", rows[0][2].Action)
	assert.Len(t, rows[1], 7)
	assert.Equal(t, "14•", rows[2][6].Label)
	assert.Equal(t, "cal:pick:2026-02-28", rows[4][6].Action)
	assert.Equal(t, "cal:pick:2026-10-14", rows[5][0].Action)
	assert.Equal(t, ActionBack, rows[5][1].Action)

	dec := Calendar(2026, time.December, nil, testNow)
	assert.Equal(t, "cal:nav:2027-01", dec[0][2].Action)
	assert.Len(t, dec, 1+5+1)
}

func TestHyphenPresetsOffered(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()
	cfg := testConfig()
	cfg.TimeSlots = []string{"Весь день", "10:00-12:00", "13:00-15:00"}

	ledger, err := store.NewLedger(ctx, store.NewMemoryWorksheet("Calendar"), cfg.TimeSlots, cfg.WholeDayLabel, &logger)
	require.NoError(t, err)
	bookings, err := store.NewBookings(ctx, store.NewMemoryWorksheet("Bookings"))
	require.NoError(t, err)
	m := NewMachine(service.NewBookingService(ledger, bookings, events.NewEventBus(), cfg, &logger), cfg)
	m.now = func() time.Time { return testNow }

	sess := models.NewSession(walker.ID)
	m.Start(sess)
	m.Handle(ctx, sess, walker, action("svc:0"))
	r := m.Handle(ctx, sess, walker, action("date:tomorrow"))

	actions := map[string]string{}
	for _, row := range r.Options {
		for _, o := range row {
			actions[o.Label] = o.Action
		}
	}
	assert.Equal(t, "time:0", actions["Весь день"])
	assert.Equal(t, "time:1", actions["10:00–12:00"])
	assert.Equal(t, "time:2", actions["13:00–15:00"])

	m.Handle(ctx, sess, walker, action("time:1"))
	assert.Equal(t, "10:00–12:00", sess.Draft.TimeSlot)
	assert.Equal(t, models.StepGettingDistrict, sess.Step)
}
