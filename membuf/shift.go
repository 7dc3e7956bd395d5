package membuf

// MakeSpace opens a gap of space bytes at at, shifting the occupied bytes
// [at, orgCount) up by space. The current size grows to orgCount+space if
// needed. The bytes in the gap keep their old values.
func (b *Buffer) MakeSpace(at, space, orgCount uint32) error {
	if orgCount > b.size {
		return &ShiftError{Op: "make space", Reason: ReasonCountPastSize, Args: [3]uint32{at, space, orgCount}}
	}
	if uint64(at)+uint64(space) > uint64(orgCount) {
		return &ShiftError{Op: "make space", Reason: ReasonRangePastCount, Args: [3]uint32{at, space, orgCount}}
	}
	end := uint64(orgCount) + uint64(space)
	if end > uint64(b.maxSize) {
		return &ShiftError{Op: "make space", Reason: ReasonPastMax, Args: [3]uint32{at, space, orgCount}}
	}
	b.ensure(end)
	if space == 0 {
		return nil
	}
	copy(b.data[at+space:orgCount+space], b.data[at:orgCount])
	return nil
}

// RemoveSpace closes a gap of remove bytes at at, shifting the occupied
// bytes [at+remove, orgCount) down to at. The current size is unchanged.
func (b *Buffer) RemoveSpace(at, remove, orgCount uint32) error {
	if uint64(at)+uint64(remove) > uint64(b.maxSize) {
		return &ShiftError{Op: "remove space", Reason: ReasonPastMax, Args: [3]uint32{at, remove, orgCount}}
	}
	if orgCount > b.size {
		return &ShiftError{Op: "remove space", Reason: ReasonCountPastSize, Args: [3]uint32{at, remove, orgCount}}
	}
	if uint64(at)+uint64(remove) > uint64(orgCount) {
		return &ShiftError{Op: "remove space", Reason: ReasonRangePastCount, Args: [3]uint32{at, remove, orgCount}}
	}
	if remove == 0 {
		return nil
	}
	copy(b.data[at:], b.data[at+remove:orgCount])
	return nil
}

// MoveToStart moves count bytes at from down to index 0.
func (b *Buffer) MoveToStart(from, count uint32) error {
	end := uint64(from) + uint64(count)
	if end > uint64(b.maxSize) {
		return &ShiftError{Op: "move to start", Reason: ReasonPastMax, Args: [3]uint32{from, count, 0}}
	}
	b.ensure(end)
	if from == 0 || count == 0 {
		return nil
	}
	copy(b.data[:count], b.data[from:from+count])
	return nil
}
