package remote

import "fmt"

// Path scheme of the replicated store. Each node is a flat record; the
// store gives no atomicity guarantee across sibling nodes, so derived
// cashbook fields are recomputed, never trusted.

func TransactionsPath(ownerID, ledgerID string) string {
	return fmt.Sprintf("owners/%s/ledgers/%s/transactions", ownerID, ledgerID)
}

func LedgersPath(ownerID string) string {
	return fmt.Sprintf("owners/%s/ledgers", ownerID)
}

func CategoriesPath(ownerID string) string {
	return fmt.Sprintf("owners/%s/categories", ownerID)
}
