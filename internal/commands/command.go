package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yigitselcuk/apptcal/internal/model"
	"github.com/yigitselcuk/apptcal/internal/timerange"
)

type Type string

const (
	TypeNew        Type = "new"
	TypeEdit       Type = "edit"
	TypeMove       Type = "move"
	TypeDelete     Type = "delete"
	TypeCancel     Type = "cancel"
	TypeResend     Type = "resend"
	TypeReschedule Type = "reschedule"
	TypeGoto       Type = "goto"
	TypeView       Type = "view"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalid(format string, args ...any) error {
	return &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// Options holds key=value settings; nil fields were not given.
type Options struct {
	Description *string
	Location    *string
	Color       *string
	Status      *model.Status
	Visibility  *model.Visibility
	Invitees    []model.Invitee
	Reminder    *model.Reminder
	Repeat      string
}

type NewArgs struct {
	Slot    timerange.TimeRange
	Title   string
	Options Options
}

type EditArgs struct {
	Target  string
	Title   string
	Slot    *timerange.TimeRange
	Options Options
}

type MoveArgs struct {
	Target string
	Date   timerange.Date
	Start  *timerange.Clock
	End    *timerange.Clock
}

type TargetArgs struct {
	Target string
}

type ResendArgs struct {
	Target string
	At     *time.Time
}

type RescheduleArgs struct {
	Target string
	Value  int
	Unit   model.ReminderUnit
}

type GotoArgs struct {
	Date timerange.Date
}

type ViewArgs struct {
	Granularity string
}

type Command struct {
	Type       Type
	Raw        string
	New        *NewArgs
	Edit       *EditArgs
	Move       *MoveArgs
	Delete     *TargetArgs
	Cancel     *TargetArgs
	Resend     *ResendArgs
	Reschedule *RescheduleArgs
	Goto       *GotoArgs
	View       *ViewArgs
}

func Parse(input string) (Command, error) {
	return ParseAt(input, timerange.DateOf(time.Now()), time.Local)
}

// ParseAt resolves relative dates against today and resend times in loc.
func ParseAt(input string, today timerange.Date, loc *time.Location) (Command, error) {
	if loc == nil {
		loc = time.Local
	}
	raw := strings.TrimSpace(input)
	if strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts, err := tokenize(raw)
	if err != nil {
		return Command{}, err
	}
	head := strings.ToLower(parts[0])
	args := parts[1:]
	p := parser{raw: input, today: today, loc: loc}

	switch Type(head) {
	case TypeNew:
		return p.parseNew(args)
	case TypeEdit:
		return p.parseEdit(args)
	case TypeMove:
		return p.parseMove(args)
	case TypeDelete, TypeCancel:
		return p.parseTarget(Type(head), args)
	case TypeResend:
		return p.parseResend(args)
	case TypeReschedule:
		return p.parseReschedule(args)
	case TypeGoto:
		return p.parseGoto(args)
	case TypeView:
		return p.parseView(args)
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

type parser struct {
	raw   string
	today timerange.Date
	loc   *time.Location
}

// new <date> <HH:MM-HH:MM|allday> <title...> [key=value...]
func (p parser) parseNew(args []string) (Command, error) {
	if len(args) < 3 {
		return Command{}, invalid("new requires date, time range and title")
	}
	slot, err := p.slot(args[0], args[1])
	if err != nil {
		return Command{}, err
	}
	words, opts, err := splitOptions(args[2:])
	if err != nil {
		return Command{}, err
	}
	title := strings.TrimSpace(strings.Join(words, " "))
	if title == "" {
		return Command{}, invalid("new requires a title")
	}
	return Command{Type: TypeNew, Raw: p.raw, New: &NewArgs{Slot: slot, Title: title, Options: opts}}, nil
}

// edit <ref> [title...] [at <date> <range>] [key=value...]
func (p parser) parseEdit(args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, invalid("edit requires a target and at least one change")
	}
	words, opts, err := splitOptions(args[1:])
	if err != nil {
		return Command{}, err
	}
	out := &EditArgs{Target: args[0], Options: opts}
	var title []string
	for i := 0; i < len(words); i++ {
		if strings.EqualFold(words[i], "at") && i+2 < len(words) {
			slot, err := p.slot(words[i+1], words[i+2])
			if err != nil {
				return Command{}, err
			}
			out.Slot = &slot
			i += 2
			continue
		}
		title = append(title, words[i])
	}
	out.Title = strings.TrimSpace(strings.Join(title, " "))
	if out.Title == "" && out.Slot == nil && opts.empty() {
		return Command{}, invalid("edit requires at least one change")
	}
	if opts.Repeat != "" {
		return Command{}, invalid("repeat applies to new appointments only")
	}
	return Command{Type: TypeEdit, Raw: p.raw, Edit: out}, nil
}

// move <ref> <date> [HH:MM-HH:MM]
func (p parser) parseMove(args []string) (Command, error) {
	if len(args) < 2 || len(args) > 3 {
		return Command{}, invalid("move requires target, date and an optional time range")
	}
	d, err := p.date(args[1])
	if err != nil {
		return Command{}, err
	}
	out := &MoveArgs{Target: args[0], Date: d}
	if len(args) == 3 {
		start, end, err := clockRange(args[2])
		if err != nil {
			return Command{}, err
		}
		out.Start, out.End = &start, &end
	}
	return Command{Type: TypeMove, Raw: p.raw, Move: out}, nil
}

func (p parser) parseTarget(kind Type, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, invalid("%s requires exactly one target", kind)
	}
	cmd := Command{Type: kind, Raw: p.raw}
	if kind == TypeDelete {
		cmd.Delete = &TargetArgs{Target: args[0]}
	} else {
		cmd.Cancel = &TargetArgs{Target: args[0]}
	}
	return cmd, nil
}

// resend <ref> [now | <date> <HH:MM>]
func (p parser) parseResend(args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, invalid("resend requires a target")
	}
	out := &ResendArgs{Target: args[0]}
	switch {
	case len(args) == 1 || (len(args) == 2 && strings.EqualFold(args[1], "now")):
	case len(args) == 3:
		d, err := p.date(args[1])
		if err != nil {
			return Command{}, err
		}
		c, err := timerange.ParseClock(args[2])
		if err != nil {
			return Command{}, invalid("resend time: %v", err)
		}
		at := d.At(c, p.loc)
		out.At = &at
	default:
		return Command{}, invalid("resend takes now or a date and time")
	}
	return Command{Type: TypeResend, Raw: p.raw, Resend: out}, nil
}

// reschedule <ref> <offset>, e.g. 15m, 2h, 1d, 1w, or "2 hours"
func (p parser) parseReschedule(args []string) (Command, error) {
	if len(args) < 2 || len(args) > 3 {
		return Command{}, invalid("reschedule requires target and reminder offset")
	}
	value, unit, err := offset(strings.Join(args[1:], ""))
	if err != nil {
		return Command{}, err
	}
	return Command{Type: TypeReschedule, Raw: p.raw, Reschedule: &RescheduleArgs{Target: args[0], Value: value, Unit: unit}}, nil
}

func (p parser) parseGoto(args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, invalid("goto requires a date")
	}
	d, err := p.date(args[0])
	if err != nil {
		return Command{}, err
	}
	return Command{Type: TypeGoto, Raw: p.raw, Goto: &GotoArgs{Date: d}}, nil
}

func (p parser) parseView(args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, invalid("view requires day, week, month or year")
	}
	g := strings.ToLower(args[0])
	switch g {
	case "day", "week", "month", "year":
	default:
		return Command{}, invalid("unknown view %q", args[0])
	}
	return Command{Type: TypeView, Raw: p.raw, View: &ViewArgs{Granularity: g}}, nil
}

func (p parser) date(raw string) (timerange.Date, error) {
	switch strings.ToLower(raw) {
	case "today":
		return p.today, nil
	case "tomorrow":
		return p.today.AddDays(1), nil
	case "yesterday":
		return p.today.AddDays(-1), nil
	}
	d, err := timerange.ParseDate(raw)
	if err != nil {
		return timerange.Date{}, invalid("date: %v", err)
	}
	return d, nil
}

func (p parser) slot(date, span string) (timerange.TimeRange, error) {
	d, err := p.date(date)
	if err != nil {
		return timerange.TimeRange{}, err
	}
	if strings.EqualFold(span, "allday") || strings.EqualFold(span, "all-day") {
		return timerange.TimeRange{Date: d, AllDay: true}, nil
	}
	start, end, err := clockRange(span)
	if err != nil {
		return timerange.TimeRange{}, err
	}
	return timerange.TimeRange{Date: d, Start: start, End: end}, nil
}

func clockRange(raw string) (timerange.Clock, timerange.Clock, error) {
	from, to, ok := strings.Cut(raw, "-")
	if !ok {
		return 0, 0, invalid("time range must look like 09:00-10:30, got %q", raw)
	}
	r, err := model.ParseSlot("2000-01-01", from, to, false)
	if err != nil {
		return 0, 0, invalid("time range: %v", err)
	}
	return r.Start, r.End, nil
}

var units = map[string]model.ReminderUnit{
	"m": model.ReminderMinutes, "min": model.ReminderMinutes, "minute": model.ReminderMinutes, "minutes": model.ReminderMinutes,
	"h": model.ReminderHours, "hour": model.ReminderHours, "hours": model.ReminderHours,
	"d": model.ReminderDays, "day": model.ReminderDays, "days": model.ReminderDays,
	"w": model.ReminderWeeks, "week": model.ReminderWeeks, "weeks": model.ReminderWeeks,
}

func offset(raw string) (int, model.ReminderUnit, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	i := 0
	for i < len(raw) && raw[i] >= '0' && raw[i] <= '9' {
		i++
	}
	value, err := strconv.Atoi(raw[:i])
	if err != nil || value <= 0 {
		return 0, "", invalid("reminder offset must start with a positive number, got %q", raw)
	}
	unit, ok := units[raw[i:]]
	if !ok {
		return 0, "", invalid("unknown reminder unit in %q", raw)
	}
	return value, unit, nil
}

func (o Options) empty() bool {
	return o.Description == nil && o.Location == nil && o.Color == nil && o.Status == nil &&
		o.Visibility == nil && o.Invitees == nil && o.Reminder == nil && o.Repeat == ""
}

func splitOptions(args []string) ([]string, Options, error) {
	var (
		words []string
		opts  Options
	)
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			words = append(words, arg)
			continue
		}
		switch strings.ToLower(key) {
		case "desc", "description":
			opts.Description = &value
		case "loc", "location":
			opts.Location = &value
		case "color":
			opts.Color = &value
		case "status":
			s := model.Status(strings.ToLower(value))
			if !s.IsValid() {
				return nil, Options{}, invalid("unknown status %q", value)
			}
			opts.Status = &s
		case "visible":
			v := visibilityOf(value)
			opts.Visibility = &v
		case "invite":
			opts.Invitees = inviteesOf(value)
		case "remind":
			r := model.Reminder{}
			if !strings.EqualFold(value, "off") {
				n, unit, err := offset(value)
				if err != nil {
					return nil, Options{}, err
				}
				r = model.Reminder{Enabled: true, Value: n, Unit: unit}
			}
			opts.Reminder = &r
		case "repeat":
			if value == "" {
				return nil, Options{}, invalid("repeat requires a rule such as FREQ=WEEKLY;COUNT=4")
			}
			opts.Repeat = value
		default:
			return nil, Options{}, invalid("unknown option %q", key)
		}
	}
	return words, opts, nil
}

func visibilityOf(raw string) model.Visibility {
	if strings.EqualFold(raw, "all") {
		return model.VisibleToAll()
	}
	return model.VisibleTo(strings.Split(raw, ",")...)
}

func inviteesOf(raw string) []model.Invitee {
	out := []model.Invitee{}
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		inv := model.Invitee{Name: item}
		switch {
		case strings.Contains(item, "@"):
			inv.Email = item
		case strings.HasPrefix(item, "+"):
			inv.Phone = item
		}
		out = append(out, inv)
	}
	return out
}

// tokenize splits on whitespace and keeps double-quoted runs together, so
// loc="Room 4" is one token.
func tokenize(raw string) ([]string, error) {
	var (
		out     []string
		cur     strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range raw {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case !quoted && (r == ' ' || r == '\t'):
			if started {
				out = append(out, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if quoted {
		return nil, invalid("unterminated quote")
	}
	if started {
		out = append(out, cur.String())
	}
	if len(out) == 0 {
		return nil, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}
	return out, nil
}
