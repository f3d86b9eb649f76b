package legacyexe

// Fuzz exercises the whole decode path (dispatch through whichever table
// family the image classifies as) for go-fuzz.
func Fuzz(data []byte) int {
	img, err := NewBytes(data, &Options{Fast: false})
	if err != nil {
		return 0
	}
	_ = img
	return 1
}
