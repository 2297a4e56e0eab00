package domain

// Milestones maps a milestone name to the column identifier that means entering it.
type Milestones map[string]string

// Well-known milestone names.
const (
	MilestoneTodo     = "todo"
	MilestoneInDev    = "indev"
	MilestoneFeedback = "feedback"
	MilestoneDone     = "done"
	MilestoneArchive  = "archive"
)

// Board describes the team workboard a report is built for.
type Board struct {
	ProjectPHID string            `yaml:"project_phid"`
	Milestones  Milestones        `yaml:"milestones"`
	ColumnNames map[string]string `yaml:"column_names"`
	Timezone    string            `yaml:"timezone"`
}

// ColumnName returns the display name of a column identifier.
// Unknown columns are returned as-is.
func (b *Board) ColumnName(columnPHID string) string {
	if name, ok := b.ColumnNames[columnPHID]; ok {
		return name
	}
	return columnPHID
}

// MilestoneColumn returns the column configured for a milestone, or "" if none.
func (b *Board) MilestoneColumn(name string) string {
	return b.Milestones[name]
}

// Snapshot maps a task name to the column it occupies at one point in time.
type Snapshot map[string]string

// ColumnChange is a task's column in two snapshots; empty means absent from the board.
type ColumnChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}
