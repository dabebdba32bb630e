// Package tables reads and writes the venue's table state: which display
// is mounted at which table, the live balance each display shows, the
// help-requested flag, and the menu items rotated as promotions.
//
// The package owns no business rules for balances. Balances are written
// by the ordering dashboard and only read here.
package tables
