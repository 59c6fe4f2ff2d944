package actor

// Step applies a reducer to a state and input without running an actor loop.
//
// Reducers are pure, so a test can drive a whole scenario as a fold over
// inputs and assert on both the states and the effects at each step.
func Step[S any](reducer ReducerFunc[S], state S, input Input) (S, []Effect) {
	return reducer(state, input)
}
