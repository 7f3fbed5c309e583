package commands

import "github.com/yigitselcuk/apptcal/internal/model"

// Draft builds the draft for a new appointment owned by owner. Without a
// visible= option the appointment is visible to its owner only.
func (a NewArgs) Draft(owner string) model.Draft {
	d := model.Draft{
		OwnerID:    owner,
		Date:       a.Slot.Date,
		Start:      a.Slot.Start,
		End:        a.Slot.End,
		AllDay:     a.Slot.AllDay,
		Title:      a.Title,
		Visibility: model.VisibleTo(owner),
		Repeat:     a.Options.Repeat,
	}
	return a.Options.apply(d)
}

func (e EditArgs) Apply(d model.Draft) model.Draft {
	if e.Title != "" {
		d.Title = e.Title
	}
	if e.Slot != nil {
		d.Date = e.Slot.Date
		d.Start, d.End, d.AllDay = e.Slot.Start, e.Slot.End, e.Slot.AllDay
	}
	return e.Options.apply(d)
}

// Apply moves the draft to the new date, keeping its duration when no new
// time range was given.
func (m MoveArgs) Apply(d model.Draft) model.Draft {
	d.Date = m.Date
	if m.Start != nil && m.End != nil {
		d.Start, d.End, d.AllDay = *m.Start, *m.End, false
	}
	return d
}

func (o Options) apply(d model.Draft) model.Draft {
	if o.Description != nil {
		d.Description = *o.Description
	}
	if o.Location != nil {
		d.Location = *o.Location
	}
	if o.Color != nil {
		d.Color = *o.Color
	}
	if o.Status != nil {
		d.Status = *o.Status
	}
	if o.Visibility != nil {
		d.Visibility = *o.Visibility
	}
	if o.Invitees != nil {
		d.Invitees = o.Invitees
	}
	if o.Reminder != nil {
		if o.Reminder.Enabled {
			r := *o.Reminder
			d.Reminder = &r
		} else if d.Reminder != nil {
			r := *d.Reminder
			r.Enabled = false
			d.Reminder = &r
		}
	}
	return d
}
