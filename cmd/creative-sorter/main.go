// Утилита creative-sorter раскладывает креативы из хранилища по иерархии папок,
// проверяет их и перераспределяет бюджеты по эффективности.
//
// Примеры:
//
//	creative-sorter run -c config.yaml
//	creative-sorter run -c config.yaml --schedule "0 0 6 * * *"
//	creative-sorter parse "US-EN | BUY123 | Summer | Youth | Seller | Image | 30s | jpg"
//	creative-sorter check-config -c config.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		}
		os.Exit(1)
	}
}
