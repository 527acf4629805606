package array

// Map applies f to every element of s and returns the results.
func Map[I any, O any](s []I, f func(I) O) []O {
	r := make([]O, len(s))
	for i, v := range s {
		r[i] = f(v)
	}
	return r
}
