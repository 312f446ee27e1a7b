package main

import (
	_ "github.com/joho/godotenv/autoload"

	"github.com/mangalib-app/mangalib/cmd"
	_ "github.com/mangalib-app/mangalib/cmd/search"
	_ "github.com/mangalib-app/mangalib/cmd/serve"
	_ "github.com/mangalib-app/mangalib/cmd/sources"
)

func main() {
	cmd.Execute()
}
