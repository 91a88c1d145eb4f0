package model

// UtilityRow is one record of the marginal-utility table: performing the
// Step-th transfer from Origin to Dest yields Delta units of fulfilled demand.
// Origin and Dest are source station ids.
type UtilityRow struct {
	Origin int
	Dest   int
	Step   int
	Delta  float64
}
