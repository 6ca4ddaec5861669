/*
Package costmodel computes optimal checkpoint layouts for walking a sequence
backward when only a forward transition exists.

# Cost Tables

A Table holds two dynamic-programming tables indexed by segment length m
and free checkpoint slots f.

The cold table R(m, f) is the number of transition invocations needed to
visit the m positions of a segment from its top down to its first position
when only the first position's state is held:

	R(0, f) = R(1, f) = 0
	R(m, 0) = m(m-1)/2
	R(m, f) = min over 1 <= x < m of  x + R(m-x, f-1) + R(x, f)

Advancing x steps and storing a checkpoint there splits the segment: the
upper part is solved with one slot fewer, then the lower part gets the slot
back.

The warm table P(m, f) is the same quantity when the cursor has just reached
the top by moving forward, so checkpoints on the way up cost nothing:

	P(m, 0) = R(m, 0)
	P(m, f) = min over 1 <= x < m of  P(m-x, f-1) + R(x, f)

The total replay work of a full forward-then-backward traversal of n
elements with budget k is T(n, k) = P(n-1, k).

Costs count transition invocations spent replaying, not moves. With no
slots every backward move replays its full distance from the initial
state, so T(n, 0) = (n-1)(n-2)/2: for n = 5 the four backward moves cost
3, 2, 1 and 0. A cost of n for k = 0 would count moves instead.

Tables are filled bottom-up (budget outer, length inner). Ties between
split points resolve to the smallest split.

# Closed Form

R(m, f) also has a closed form in terms of binomial coefficients, see
ClosedForm. It is used to cross-check tables and to report costs for sizes
too large to tabulate.

# Plans

Model.Plan turns a table into an immutable Plan for an Extent (Fixed or
Growing) and a budget: the forward placements, T(n, k), the per-step cost
W(n, k) and the replay chains used when walking backward.

# Caching

Tables are expensive (O(n^2 k)) and shareable. A Cache owned by the caller
bounds how many cells are kept, collapses concurrent builds of the same
table and can persist tables to a Store (MemoryStore, SQLiteStore).

# Thread Safety

Table and Plan are immutable and safe for concurrent reads. Model, Cache
and the stores are safe for concurrent use.
*/
package costmodel
