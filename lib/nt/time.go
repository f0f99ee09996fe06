package nt

// NetworkTime is a change stamp supplied by the service. It increases
// monotonically but is not related to wall clock time.
type NetworkTime uint64
