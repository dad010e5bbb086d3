package types

func GrowSlice[T any](myslice []T, newCap int) (biggerSlice []T) {
	if cap(myslice) >= newCap {
		return myslice
	}
	biggerSlice = make([]T, len(myslice), newCap)
	copy(biggerSlice, myslice)
	return
}
