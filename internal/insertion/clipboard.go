package insertion

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// writeClipboard is shared by every platform backend so clipboard access
// goes through one cross-platform library instead of each OS backend
// shelling out to its own clipboard utility.
func writeClipboard(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}
