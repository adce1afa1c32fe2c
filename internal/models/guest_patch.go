package models

// GuestPatch is a partial update for a guest's editable fields. Each slot is
// a pointer so "not provided" and "set to empty" stay distinct; only set
// slots are written, the rest keep their stored values. Check-in state
// fields are deliberately absent: those move only through the engine.
type GuestPatch struct {
	FirstName       *string `json:"first_name,omitempty"`
	LastName        *string `json:"last_name,omitempty"`
	Email           *string `json:"email,omitempty"`
	Phone           *string `json:"phone,omitempty"`
	TicketClass     *string `json:"ticket_class,omitempty"`
	PlusOnesAllowed *int    `json:"plus_ones_allowed,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

// Columns returns the column names set in the patch, in a stable order.
func (p *GuestPatch) Columns() []string {
	cols := make([]string, 0, 7)
	if p.FirstName != nil {
		cols = append(cols, "first_name")
	}
	if p.LastName != nil {
		cols = append(cols, "last_name")
	}
	if p.Email != nil {
		cols = append(cols, "email")
	}
	if p.Phone != nil {
		cols = append(cols, "phone")
	}
	if p.TicketClass != nil {
		cols = append(cols, "ticket_class")
	}
	if p.PlusOnesAllowed != nil {
		cols = append(cols, "plus_ones_allowed")
	}
	if p.Notes != nil {
		cols = append(cols, "notes")
	}
	return cols
}

// Apply copies the set slots onto the guest.
func (p *GuestPatch) Apply(g *Guest) {
	if p.FirstName != nil {
		g.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		g.LastName = *p.LastName
	}
	if p.Email != nil {
		g.Email = *p.Email
	}
	if p.Phone != nil {
		g.Phone = *p.Phone
	}
	if p.TicketClass != nil {
		g.TicketClass = *p.TicketClass
	}
	if p.PlusOnesAllowed != nil {
		g.PlusOnesAllowed = *p.PlusOnesAllowed
	}
	if p.Notes != nil {
		g.Notes = *p.Notes
	}
}
