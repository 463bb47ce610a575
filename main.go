package main

import (
	"flag"
	"log"

	"postfeed/auth"
	"postfeed/crud"
	"postfeed/http"
)

// main is the app's entry point.
func main() {
	// In production a .config.json file has to be provided.
	prod := flag.Bool("prod", false, "Provide this flag in production to ensure that a .config.json file is provided before the application starts.")
	reset := flag.Bool("reset", false, "Drop and recreate all tables before starting. Refused in production.")
	flag.Parse()

	config, err := LoadConfig(*prod)
	must(err)

	// Open a database connection and execute migrations.
	db, err := OpenDB(config.Database.ConnectionInfo(), config.IsProd())
	must(err)
	defer CloseDB(db)
	if *reset {
		if config.IsProd() {
			log.Fatal("refusing to reset the database in production")
		}
		must(DestructiveReset(db))
	}
	must(AutoMigrate(db))

	// Start the crud services. The image storage has to exist before the post service.
	services, err := crud.NewServices(
		db,
		crud.WithUser(config.Pepper),
		crud.WithOAuth(),
		crud.WithProfile(),
		crud.WithImage(config.ImagesDir),
		crud.WithPost(),
		crud.WithFeed(),
		crud.WithLike(),
		crud.WithBookmark(),
		crud.WithComment(),
	)
	must(err)

	providers := auth.NewProviders(config.SiteURL, config.OAuth)
	log.Printf("oauth providers: %v", auth.ProviderNames(providers))

	// Set up a webserver.
	server := http.NewServer(
		http.Config{
			IsProd:    config.IsProd(),
			ClientURL: config.ClientURL,
			CSRFKey:   config.CSRFKey,
			ImagesDir: config.ImagesDir,
		},
		http.Services{
			User:     services.User,
			OAuth:    services.OAuth,
			Profile:  services.Profile,
			Post:     services.Post,
			Feed:     services.Feed,
			Like:     services.Like,
			Bookmark: services.Bookmark,
			Comment:  services.Comment,
			Image:    services.Image,
		},
		auth.NewSessions([]byte(config.HMACKey), config.IsProd()),
		providers,
	)

	// Serve the app.
	server.Run(config.Port)
}

// must is a little helper for shortening the panic instruction.
func must(err error) {
	if err != nil {
		panic(err)
	}
}
