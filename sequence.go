package kvbucket

// SeqVal is the stored state of a sequence: the last value NextVal returned.
type SeqVal uint64

var SeqValType = DefineType[SeqVal]("SeqVal")

// NewSequence returns the singleton holding the sequence named by namespaces.
func NewSequence(st Storage, namespaces ...[]byte) *Singleton[SeqVal] {
	return NewSingleton(st, SeqValType, namespaces...)
}

// CurrVal returns the last value returned by NextVal, or whatever was saved
// directly. An unused sequence is at 0.
func CurrVal(seq *Singleton[SeqVal]) (uint64, error) {
	v, err := seq.MayLoad()
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, nil
	}
	return uint64(*v), nil
}

// NextVal increments the sequence and returns the new value, so the first
// call on an unused sequence returns 1. Not safe against concurrent callers
// of the same sequence.
func NextVal(seq *Singleton[SeqVal]) (uint64, error) {
	cur, err := CurrVal(seq)
	if err != nil {
		return 0, err
	}
	next := SeqVal(cur + 1)
	err = seq.Save(&next)
	if err != nil {
		return 0, err
	}
	return uint64(next), nil
}
