package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ifsertao/permuta-api/internal/dto"
	"github.com/ifsertao/permuta-api/internal/models"
	appErrors "github.com/ifsertao/permuta-api/pkg/errors"
)

const maxCalendarWindowDays = 120

var weekdayByGoDay = map[time.Weekday]models.Weekday{
	time.Monday:    models.WeekdayMonday,
	time.Tuesday:   models.WeekdayTuesday,
	time.Wednesday: models.WeekdayWednesday,
	time.Thursday:  models.WeekdayThursday,
	time.Friday:    models.WeekdayFriday,
	time.Saturday:  models.WeekdaySaturday,
}

var calendarColors = map[string]string{
	"class":          "#3788d8",
	"swap_pending":   "#f59e0b",
	"swap_approved":  "#10b981",
	"swap_cancelled": "#9ca3af",
	"make_up":        "#8b5cf6",
}

type calendarSlotLister interface {
	List(ctx context.Context, filter models.ScheduleSlotFilter) ([]models.ScheduleSlot, int, error)
}

type calendarSwapLister interface {
	List(ctx context.Context, filter models.SwapFilter) ([]models.SwapRequest, error)
}

// CalendarService expands the weekly schedule into dated occurrences and
// overlays swap requests and make-up sessions.
type CalendarService struct {
	slots      calendarSlotLister
	swaps      calendarSwapLister
	professors professorResolver
	logger     *zap.Logger
	now        func() time.Time
}

// NewCalendarService constructs the service.
func NewCalendarService(slots calendarSlotLister, swaps calendarSwapLister, professors professorResolver, logger *zap.Logger) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{
		slots:      slots,
		swaps:      swaps,
		professors: professors,
		logger:     logger,
		now:        time.Now,
	}
}

// Events builds the feed for the requested window. Professors see their
// own slots and swaps; coordinators see everything.
func (s *CalendarService) Events(ctx context.Context, query dto.CalendarQuery, actor *models.JWTClaims) ([]dto.CalendarEvent, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	from, to, err := s.window(query)
	if err != nil {
		return nil, err
	}

	slotFilter := models.ScheduleSlotFilter{}
	// The window bounds the affected class date and the make-up date, not
	// the request timestamp.
	swapFilter := models.SwapFilter{ClassDateFrom: &from, ClassDateTo: &to, Limit: 500}

	if !actor.IsCoordinator() {
		professor, err := s.professors.FindByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrForbidden, "your user is not linked to a professor record yet")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve professor record")
		}
		slotFilter.ProfessorID = professor.ID
		swapFilter.InvolvedProfessorID = professor.ID
	}

	slots, _, err := s.slots.List(ctx, slotFilter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule slots")
	}

	// Swaps are matched by slot and class date so the expanded occurrence
	// can be flagged instead of shown as a regular class.
	swaps, err := s.swaps.List(ctx, swapFilter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list swap requests")
	}
	swapByOccurrence := make(map[string]*models.SwapRequest, len(swaps))
	for i := range swaps {
		key := occurrenceKey(swaps[i].SlotID, swaps[i].ClassDate)
		swapByOccurrence[key] = &swaps[i]
	}

	events := make([]dto.CalendarEvent, 0, len(slots)*8)
	for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
		weekday, teaching := weekdayByGoDay[day.Weekday()]
		if !teaching {
			continue
		}
		for i := range slots {
			slot := &slots[i]
			if slot.Weekday != weekday {
				continue
			}
			event := dto.CalendarEvent{
				Title:     fmt.Sprintf("%s (%s)", slot.DisciplineName, slot.ClassCode),
				Date:      day.Format(dateLayout),
				StartTime: slot.StartTime,
				EndTime:   slot.EndTime,
				Kind:      "class",
				Color:     calendarColors["class"],
			}
			if swap, ok := swapByOccurrence[occurrenceKey(slot.ID, day)]; ok {
				event.Kind = "swap"
				event.Status = string(swap.Status)
				event.SwapID = swap.ID
				event.Title = fmt.Sprintf("%s (%s) - permuta com %s", slot.DisciplineName, slot.ClassCode, swap.SubstituteName)
				event.Color = swapColor(swap.Status)
			}
			events = append(events, event)
		}
	}

	// Make-up sessions show up on their own dates.
	for i := range swaps {
		swap := &swaps[i]
		if !swap.HasMakeUp() || swap.Status == models.SwapStatusCancelled {
			continue
		}
		date := swap.MakeUp.Date
		if date.Before(from) || !date.Before(to) {
			continue
		}
		events = append(events, dto.CalendarEvent{
			Title:  fmt.Sprintf("Reposição: %s (%s)", swap.DisciplineName, swap.ClassCode),
			Date:   date.Format(dateLayout),
			Kind:   "make_up",
			Status: string(swap.Status),
			SwapID: swap.ID,
			Color:  calendarColors["make_up"],
		})
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date < events[j].Date
		}
		return events[i].StartTime < events[j].StartTime
	})
	return events, nil
}

func (s *CalendarService) window(query dto.CalendarQuery) (time.Time, time.Time, error) {
	now := s.now().UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 30)

	if query.From != "" {
		parsed, err := time.Parse(dateLayout, query.From)
		if err != nil {
			return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD")
		}
		from = parsed
		to = from.AddDate(0, 0, 30)
	}
	if query.To != "" {
		parsed, err := time.Parse(dateLayout, query.To)
		if err != nil {
			return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD")
		}
		to = parsed.AddDate(0, 0, 1)
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "from must be before to")
	}
	if to.Sub(from) > maxCalendarWindowDays*24*time.Hour {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("window limited to %d days", maxCalendarWindowDays))
	}
	return from, to, nil
}

func occurrenceKey(slotID string, date time.Time) string {
	return slotID + "|" + date.Format(dateLayout)
}

func swapColor(status models.SwapStatus) string {
	switch status {
	case models.SwapStatusApproved:
		return calendarColors["swap_approved"]
	case models.SwapStatusCancelled:
		return calendarColors["swap_cancelled"]
	default:
		return calendarColors["swap_pending"]
	}
}
