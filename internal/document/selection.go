package document

// Select flags or unflags the block at i.
func (d *Document) Select(i int, on bool) error {
	b, err := d.blocks.At(i)
	if err != nil {
		return err
	}
	b.SetSelected(on)
	return nil
}

// SelectAll flags every block.
func (d *Document) SelectAll() {
	for _, b := range d.blocks.Blocks() {
		b.SetSelected(true)
	}
}

// ClearSelection unflags every block.
func (d *Document) ClearSelection() {
	for _, b := range d.blocks.Blocks() {
		b.SetSelected(false)
	}
}

// Selected returns the ascending indices of flagged blocks.
func (d *Document) Selected() []int {
	var out []int
	for i, b := range d.blocks.Blocks() {
		if b.Selected() {
			out = append(out, i)
		}
	}
	return out
}
