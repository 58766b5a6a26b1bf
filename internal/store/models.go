package store

import (
	"fmt"
	"strings"
	"time"
)

// TaskStatus is a task's position in the maintenance lifecycle.
type TaskStatus string

const (
	StatusIdentified TaskStatus = "Identified"
	StatusScheduled  TaskStatus = "Scheduled"
	StatusInProgress TaskStatus = "In Progress"
	StatusDeferred   TaskStatus = "Deferred"
	StatusCompleted  TaskStatus = "Completed"
)

// transitions is the legal status table. Completed has no outgoing moves.
var transitions = map[TaskStatus][]TaskStatus{
	StatusIdentified: {StatusScheduled, StatusDeferred, StatusCompleted},
	StatusScheduled:  {StatusInProgress, StatusCompleted, StatusIdentified},
	StatusInProgress: {StatusCompleted},
	StatusDeferred:   {StatusIdentified},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to TaskStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusIdentified, StatusScheduled, StatusInProgress, StatusDeferred, StatusCompleted:
		return true
	}
	return false
}

// ParseStatus accepts any casing, with "_" or "-" in place of spaces
// ("in_progress").
func ParseStatus(s string) (TaskStatus, error) {
	norm := strings.NewReplacer("_", " ", "-", " ").Replace(s)
	for _, st := range []TaskStatus{StatusIdentified, StatusScheduled, StatusInProgress, StatusDeferred, StatusCompleted} {
		if strings.EqualFold(string(st), norm) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q (Identified, Scheduled, In Progress, Deferred, Completed)", s)
}

// IsTerminal returns true if no further transitions are possible.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted
}

// Priority is the coarse urgency tier of a task.
type Priority string

const (
	PriorityHigh    Priority = "High"
	PriorityMedium  Priority = "Medium"
	PriorityLow     Priority = "Low"
	PriorityRoutine Priority = "Routine"
)

// Weight returns the tier value used for ordering (High=3 ... Routine=0).
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// ParsePriority accepts any casing of a tier name.
func ParsePriority(s string) (Priority, error) {
	for _, p := range []Priority{PriorityHigh, PriorityMedium, PriorityLow, PriorityRoutine} {
		if strings.EqualFold(string(p), s) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown priority %q (High, Medium, Low, Routine)", s)
}

// Scope says what part of a property a task covers.
type Scope string

const (
	ScopePropertyWide Scope = "property_wide"
	ScopeBuildingWide Scope = "building_wide"
	ScopePerUnit      Scope = "per_unit"
)

// ExecutionMethod is who carries out the work. Empty means unset.
type ExecutionMethod string

const (
	MethodUnset      ExecutionMethod = ""
	MethodDIY        ExecutionMethod = "DIY"
	MethodContractor ExecutionMethod = "Contractor"
	MethodOperator   ExecutionMethod = "Operator"
)

// ParseExecutionMethod accepts any casing; "" yields MethodUnset.
func ParseExecutionMethod(s string) (ExecutionMethod, error) {
	if s == "" {
		return MethodUnset, nil
	}
	for _, m := range []ExecutionMethod{MethodDIY, MethodContractor, MethodOperator} {
		if strings.EqualFold(string(m), s) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown execution method %q (DIY, Contractor, Operator)", s)
}

// TimeRange tags which part of a day a scheduled task occupies.
type TimeRange string

const (
	RangeUnset     TimeRange = ""
	RangeMorning   TimeRange = "morning"
	RangeAfternoon TimeRange = "afternoon"
	RangeEvening   TimeRange = "evening"
)

// Hours returns the display hours [start, end) of the range. Unset
// ranges are shown as morning.
func (r TimeRange) Hours() (start, end int) {
	switch r {
	case RangeAfternoon:
		return 12, 17
	case RangeEvening:
		return 17, 21
	}
	return 8, 12
}

// ParseTimeRange accepts any casing; "" yields RangeUnset.
func ParseTimeRange(s string) (TimeRange, error) {
	if s == "" {
		return RangeUnset, nil
	}
	for _, r := range []TimeRange{RangeMorning, RangeAfternoon, RangeEvening} {
		if strings.EqualFold(string(r), s) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown time range %q (morning, afternoon, evening)", s)
}

// Task is one unit of maintenance work.
type Task struct {
	ID         string `json:"id"`
	PropertyID string `json:"property_id"`
	Unit       string `json:"unit,omitempty"`        // unit tag; "" for property/building level
	BatchID    string `json:"batch_id,omitempty"`    // shared by siblings of one fan-out call
	TemplateID string `json:"template_id,omitempty"` // origin template, "" for manual entry

	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	SystemType  string   `json:"system_type,omitempty"`
	Priority    Priority `json:"priority"`
	Scope       Scope    `json:"scope"`
	UnitCount   int      `json:"unit_count,omitempty"`

	Status          TaskStatus      `json:"status"`
	ScheduledDate   *time.Time      `json:"scheduled_date,omitempty"`
	CompletionDate  *time.Time      `json:"completion_date,omitempty"`
	ExecutionMethod ExecutionMethod `json:"execution_method,omitempty"`
	TimeRange       TimeRange       `json:"time_range,omitempty"`

	CascadeRisk    *float64 `json:"cascade_risk,omitempty"`
	RiskRationale  string   `json:"risk_rationale,omitempty"`
	CurrentFixCost *float64 `json:"current_fix_cost,omitempty"`
	DelayedFixCost *float64 `json:"delayed_fix_cost,omitempty"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	DIYHours       *float64 `json:"diy_hours,omitempty"`
	ActualCost     *float64 `json:"actual_cost,omitempty"`
	Photos         []string `json:"photos,omitempty"`

	Seasonal       bool       `json:"seasonal,omitempty"`
	SeasonalWindow string     `json:"seasonal_window,omitempty"`
	SnoozedUntil   *time.Time `json:"snoozed_until,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the entity invariants that do not depend on siblings.
func (t *Task) Validate() error {
	if t.Title == "" {
		return &FieldError{Field: "title", Reason: "a task needs a title"}
	}
	if t.PropertyID == "" {
		return &FieldError{Field: "property_id", Reason: "a task belongs to a property"}
	}
	switch t.Scope {
	case ScopePerUnit:
		if t.Unit == "" {
			return &FieldError{Field: "unit", Reason: "per_unit tasks must carry a unit tag"}
		}
	case ScopePropertyWide, ScopeBuildingWide:
	default:
		return fmt.Errorf("unknown scope %q", t.Scope)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("unknown status %q", t.Status)
	}
	if t.Status == StatusScheduled && t.ScheduledDate == nil {
		return &FieldError{Field: "scheduled_date", Reason: "scheduled tasks need a date"}
	}
	if t.Status == StatusCompleted && t.CompletionDate == nil {
		return &FieldError{Field: "completion_date", Reason: "completed tasks need a completion date"}
	}
	if t.CascadeRisk != nil && (*t.CascadeRisk < 0 || *t.CascadeRisk > 10) {
		return fmt.Errorf("cascade risk %.1f outside 0-10", *t.CascadeRisk)
	}
	return nil
}

// DateOnly returns UTC midnight of t's calendar date as seen in t's own
// location. Scheduled and completion dates are stored this way so a date
// survives the round trip through a UTC database column.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Hours is the estimated effort, falling back to the DIY estimate.
func (t *Task) Hours() float64 {
	if t.EstimatedHours != nil {
		return *t.EstimatedHours
	}
	if t.DIYHours != nil {
		return *t.DIYHours
	}
	return 0
}

// TaskFilter narrows ListTasks. Zero fields match everything.
type TaskFilter struct {
	PropertyID string
	Status     TaskStatus
	Unit       string
	BatchID    string
	TemplateID string
}

// Template is a reusable seasonal task blueprint.
type Template struct {
	ID               string   `json:"id" yaml:"id"`
	Title            string   `json:"title" yaml:"title"`
	Description      string   `json:"description,omitempty" yaml:"description,omitempty"`
	SystemType       string   `json:"system_type,omitempty" yaml:"system_type,omitempty"`
	DefaultPriority  Priority `json:"default_priority" yaml:"default_priority"`
	Seasons          []string `json:"seasons,omitempty" yaml:"seasons,omitempty"`
	ClimateZones     []string `json:"climate_zones,omitempty" yaml:"climate_zones,omitempty"`
	Scope            Scope    `json:"scope" yaml:"scope"` // property_wide or per_unit
	RecurrenceMonths int      `json:"recurrence_months,omitempty" yaml:"recurrence_months,omitempty"`
	EstimatedHours   *float64 `json:"estimated_hours,omitempty" yaml:"estimated_hours,omitempty"`
	SeasonalWindow   string   `json:"seasonal_window,omitempty" yaml:"seasonal_window,omitempty"`
	UsageCount       int      `json:"usage_count" yaml:"-"`
}

// Unit is one door of a property.
type Unit struct {
	ID        string `json:"id"`
	Nickname  string `json:"nickname,omitempty"`
	Floor     int    `json:"floor,omitempty"`
	Occupancy string `json:"occupancy,omitempty"` // occupied, vacant, owner
	Bedrooms  int    `json:"bedrooms,omitempty"`
	Bathrooms int    `json:"bathrooms,omitempty"`
}

// Tag is the label tasks use to point at this unit.
func (u Unit) Tag() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.ID
}

// DuplicateUnitTag returns the first tag shared by two units.
func DuplicateUnitTag(units []Unit) (string, bool) {
	seen := make(map[string]bool, len(units))
	for _, u := range units {
		if seen[u.Tag()] {
			return u.Tag(), true
		}
		seen[u.Tag()] = true
	}
	return "", false
}

// FlowType is the derived topology class of a property.
type FlowType string

const (
	FlowSingleFamily FlowType = "single_family"
	FlowDualUnit     FlowType = "dual_unit"
	FlowMultiUnit    FlowType = "multi_unit"
)

// Property is a managed building with one or more doors.
type Property struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DoorCount   int       `json:"door_count"`
	ClimateZone string    `json:"climate_zone,omitempty"`
	Units       []Unit    `json:"units,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NormalizeUnits resolves the unit list once: an explicit list wins,
// otherwise multi-door properties get synthesized "Unit 1..N" entries.
func (p *Property) NormalizeUnits() {
	if len(p.Units) > 0 || p.DoorCount <= 1 {
		return
	}
	p.Units = make([]Unit, p.DoorCount)
	for i := range p.Units {
		name := fmt.Sprintf("Unit %d", i+1)
		p.Units[i] = Unit{ID: name, Nickname: name}
	}
}

// UnitCount is the number of normalized units, at least 1.
func (p *Property) UnitCount() int {
	if n := len(p.Units); n > 0 {
		return n
	}
	if p.DoorCount > 1 {
		return p.DoorCount
	}
	return 1
}

// FlowType derives the topology from the unit count.
func (p *Property) FlowType() FlowType {
	switch n := p.UnitCount(); {
	case n <= 1:
		return FlowSingleFamily
	case n == 2:
		return FlowDualUnit
	default:
		return FlowMultiUnit
	}
}

// System is a physical building system whose age drives preservation advice.
type System struct {
	ID          string `json:"id"`
	PropertyID  string `json:"property_id"`
	Type        string `json:"type"`
	InstallYear *int   `json:"install_year,omitempty"`
	Condition   string `json:"condition,omitempty"` // Excellent, Good, Fair, Poor, Urgent
}

// Event is an audit record of something that happened to a task.
type Event struct {
	ID        int64     `json:"id"`
	TaskID    string    `json:"task_id"`
	Type      string    `json:"event_type"` // created, updated, status_changed, deleted
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
