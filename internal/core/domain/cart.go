package domain

type CartLine struct {
	ItemID    string `json:"item_id"`
	ItemName  string `json:"item_name"`
	Quantity  int    `json:"quantity"`
	UnitPrice Money  `json:"unit_price"`
	Note      string `json:"note,omitempty"`
}

// Cart holds at most one line per item. The zero value is an empty cart.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

func (c *Cart) IsEmpty() bool { return len(c.Lines) == 0 }

func (c *Cart) index(itemID string) int {
	for i, l := range c.Lines {
		if l.ItemID == itemID {
			return i
		}
	}
	return -1
}

// Add puts qty units of item into the cart, merging with an existing line and
// refreshing its price snapshot.
func (c *Cart) Add(item MenuItem, qty int) error {
	if qty < 1 {
		return ErrQuantityInvalid
	}
	if i := c.index(item.ID); i >= 0 {
		c.Lines[i].Quantity += qty
		c.Lines[i].UnitPrice = item.Price
		c.Lines[i].ItemName = item.Name
		return nil
	}
	c.Lines = append(c.Lines, CartLine{
		ItemID:    item.ID,
		ItemName:  item.Name,
		Quantity:  qty,
		UnitPrice: item.Price,
	})
	return nil
}

// Decrement removes one unit of itemID. The line disappears with its last unit.
// It reports whether the item was in the cart.
func (c *Cart) Decrement(itemID string) bool {
	i := c.index(itemID)
	if i < 0 {
		return false
	}
	c.Lines[i].Quantity--
	if c.Lines[i].Quantity < 1 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	}
	return true
}

// Merge adds every line of other into c. Quantities of shared items are summed
// and the incoming snapshot wins.
func (c *Cart) Merge(other Cart) {
	for _, l := range other.Lines {
		if i := c.index(l.ItemID); i >= 0 {
			c.Lines[i].Quantity += l.Quantity
			c.Lines[i].UnitPrice = l.UnitPrice
			if l.Note != "" {
				c.Lines[i].Note = l.Note
			}
			continue
		}
		c.Lines = append(c.Lines, l)
	}
}

func (c *Cart) Total() Money {
	var sum Money
	for _, l := range c.Lines {
		sum += l.UnitPrice.Times(l.Quantity)
	}
	return sum
}

// CartFromLines rebuilds a cart out of persisted order lines.
func CartFromLines(lines []OrderLine) Cart {
	var c Cart
	for _, l := range lines {
		c.Merge(Cart{Lines: []CartLine{{
			ItemID:    l.MenuItemID,
			ItemName:  l.ItemName,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Note:      l.Note,
		}}})
	}
	return c
}
