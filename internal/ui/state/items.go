package state

import "strconv"

// Item is one row of a list column. ID is the row's database id rendered as
// a string so filtering can match on it.
type Item struct {
	ID    string
	Label string
	// Detail is rendered dimmed after the label, for example a script's command.
	Detail string
}

// NewItem builds an Item for a database row.
func NewItem(id int64, label, detail string) Item {
	return Item{ID: strconv.FormatInt(id, 10), Label: label, Detail: detail}
}

// Int64ID parses the item id back into a database id.
func (i Item) Int64ID() (int64, bool) {
	id, err := strconv.ParseInt(i.ID, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// CloneItems produces a shallow copy of the provided items.
func CloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	dup := make([]Item, len(items))
	copy(dup, items)
	return dup
}
