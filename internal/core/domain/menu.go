package domain

type MenuItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     Money  `json:"price"`
	Category  string `json:"category"`
	Available bool   `json:"available"`
}

type Table struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Occupancy string

const (
	TableAvailable Occupancy = "available"
	TableOccupied  Occupancy = "occupied"
)

// DeriveOccupancy maps every table to its occupancy. A table is occupied if
// and only if some order on it is pending or proses. Orders on tables that are
// not in the list are ignored.
func DeriveOccupancy(tables []Table, orders []Order) map[string]Occupancy {
	out := make(map[string]Occupancy, len(tables))
	for _, t := range tables {
		out[t.ID] = TableAvailable
	}
	for _, o := range orders {
		if !o.Status.Active() {
			continue
		}
		if _, ok := out[o.TableID]; ok {
			out[o.TableID] = TableOccupied
		}
	}
	return out
}
