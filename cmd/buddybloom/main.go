package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/buddybloom/buddybloom/config"
	"github.com/buddybloom/buddybloom/internal/application"
	"github.com/buddybloom/buddybloom/internal/container"
	"github.com/buddybloom/buddybloom/internal/domain/entity"
	"github.com/buddybloom/buddybloom/internal/domain/repository"
	"github.com/buddybloom/buddybloom/internal/infrastructure/memory"
	neo4jstore "github.com/buddybloom/buddybloom/internal/infrastructure/neo4j"
	"github.com/buddybloom/buddybloom/pkg/helpers"
	"github.com/buddybloom/buddybloom/pkg/validation"
)

const pageSize = 25

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	ctx := context.Background()

	var store repository.GraphStore
	switch cfg.StoreBackend {
	case "memory":
		store = memory.NewStore()
		logger.Warn("using volatile in-memory store; data is lost on exit")
	default:
		ns, err := neo4jstore.NewStore(ctx, cfg.Neo4jURI, cfg.Neo4jUsername, cfg.Neo4jPassword, cfg.Neo4jDatabase)
		if err != nil {
			log.Fatalf("failed to connect to graph store: %v", err)
		}
		defer func() { _ = ns.Close(ctx) }()
		if err := ns.EnsureConstraints(ctx); err != nil {
			log.Fatalf("failed to ensure constraints: %v", err)
		}
		store = ns
	}

	if cfg.RedisEnabled {
		rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer func() { _ = rdb.Close() }()
		container.SetRedis(rdb)
	}
	if cfg.EventsEnabled {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQFollowQueue)
		if err != nil {
			logger.WithError(err).Warn("rabbitmq unavailable; follower notifications disabled")
		} else {
			defer pub.Close()
			container.SetRabbitPub(pub)
		}
	}
	if cfg.SearchEnabled {
		es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			logger.WithError(err).Warn("elasticsearch unavailable; user search disabled")
		} else {
			container.SetES(es)
		}
	}
	if cfg.GCSBucket != "" {
		gcs, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			logger.WithError(err).Warn("gcs unavailable; avatar uploads disabled")
		} else {
			defer func() { _ = gcs.Close() }()
			container.SetGCS(gcs)
		}
	}
	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetGraphStore(store)

	registry := application.NewRegistryService(store, logger)
	recCache := application.NewRedisRecommendationCache(container.GetRedis())
	follows := application.NewFollowService(store, container.GetRabbitPub(), recCache, logger)
	queries := application.NewQueryService(store, recCache, logger)
	queries.MaxPageSize = cfg.MaxPageSize
	queries.RecommendationTTL = cfg.RecommendationCacheTTL
	profiles := application.NewProfileService(registry, container.GetGCS(), cfg.GCSBucket, container.GetES(), cfg.ESUsersIndex, logger)

	app := &consoleApp{
		in:       bufio.NewReader(os.Stdin),
		registry: registry,
		follows:  follows,
		queries:  queries,
		profiles: profiles,
	}
	app.run(ctx)
}

type consoleApp struct {
	in       *bufio.Reader
	registry *application.RegistryService
	follows  *application.FollowService
	queries  *application.QueryService
	profiles *application.ProfileService

	current *entity.User
}

func (a *consoleApp) run(ctx context.Context) {
	fmt.Println("\n=== Buddy-Bloom Console: Signup / Login ===")
	for {
		if a.current != nil {
			if quit := a.loggedInMenu(ctx); quit {
				return
			}
			continue
		}
		fmt.Println("\n1) Signup")
		fmt.Println("2) Login")
		fmt.Println("3) Exit")
		switch a.prompt("Choose an option: ") {
		case "1":
			a.signup(ctx)
		case "2":
			a.login(ctx)
		case "3":
			fmt.Println("Goodbye.")
			return
		default:
			fmt.Println("Invalid choice. Please select 1-3.")
		}
	}
}

// loggedInMenu returns true when the process should exit.
func (a *consoleApp) loggedInMenu(ctx context.Context) bool {
	fmt.Printf("\n=== Buddy-Bloom Console: Logged in as %s ===\n", a.current.Username)
	fmt.Println("1) View Profile")
	fmt.Println("2) Edit Profile")
	fmt.Println("3) Follow User")
	fmt.Println("4) Unfollow User")
	fmt.Println("5) View Followers")
	fmt.Println("6) View Following")
	fmt.Println("7) View Mutual Connections")
	fmt.Println("8) Friend Recommendations")
	fmt.Println("9) Search Users")
	fmt.Println("10) Logout")

	switch a.prompt("Choose an option: ") {
	case "1":
		a.displayProfile(a.current)
	case "2":
		a.editProfile(ctx)
	case "3":
		a.follow(ctx)
	case "4":
		a.unfollow(ctx)
	case "5":
		a.listFollowers(ctx)
	case "6":
		a.listFollowing(ctx)
	case "7":
		a.mutuals(ctx)
	case "8":
		a.recommendations(ctx)
	case "9":
		a.search(ctx)
	case "10":
		fmt.Println("Logged out successfully.")
		a.current = nil
	default:
		fmt.Println("Invalid choice. Please select 1-10.")
	}
	return false
}

func (a *consoleApp) prompt(label string) string {
	fmt.Print(label)
	line, err := a.in.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

func promptPassword(label string) string {
	fmt.Print(label)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return ""
	}
	return string(b)
}

func (a *consoleApp) signup(ctx context.Context) {
	in := application.RegisterInput{
		Username: a.prompt("Choose username: "),
		Email:    a.prompt("Email: "),
		Name:     a.prompt("Full name: "),
		Bio:      a.prompt("Bio: "),
	}
	password := promptPassword("Choose password: ")
	if password != promptPassword("Confirm password: ") {
		fmt.Println("Passwords do not match.")
		return
	}
	in.Password = password

	u, created, err := a.registry.Register(ctx, in)
	if err != nil {
		if errors.Is(err, entity.ErrInvalidArgument) {
			fmt.Println("Signup failed:")
			for field, msg := range validation.ToDetails(err) {
				fmt.Printf("  %s %s\n", field, msg)
			}
			return
		}
		fmt.Printf("Signup failed: %v\n", err)
		return
	}
	if !created {
		fmt.Printf("Username %q is already taken.\n", in.Username)
		return
	}
	a.profiles.IndexUser(ctx, u)
	a.current = u
	fmt.Printf("Welcome, %s!\n", u.Name)
}

func (a *consoleApp) login(ctx context.Context) {
	username := a.prompt("Username: ")
	password := promptPassword("Password: ")
	u, err := a.registry.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, application.ErrInvalidCredentials) {
			fmt.Println("Invalid username or password.")
		} else {
			fmt.Printf("Login failed: %v\n", err)
		}
		return
	}
	a.current = u
	fmt.Printf("Welcome back, %s!\n", u.Name)
}

func (a *consoleApp) displayProfile(u *entity.User) {
	fmt.Println("\n--- Your Profile ---")
	fmt.Printf("  User ID:   %s\n", u.ID)
	fmt.Printf("  Username:  %s\n", u.Username)
	fmt.Printf("  Name:      %s\n", u.Name)
	fmt.Printf("  Email:     %s\n", u.Email)
	fmt.Printf("  Bio:       %s\n", u.Bio)
	if u.AvatarURL != "" {
		fmt.Printf("  Avatar:    %s\n", u.AvatarURL)
	}
	fmt.Printf("  Followers: %d\n", u.FollowersCount)
	fmt.Printf("  Following: %d\n", u.FollowingCount)
	fmt.Println("----------------------")
}

func (a *consoleApp) editProfile(ctx context.Context) {
	fmt.Println("\n--- Edit Profile (press Enter to keep current) ---")
	in := application.UpdateProfileInput{}
	if v := a.prompt(fmt.Sprintf("Name [%s]: ", a.current.Name)); v != "" {
		in.Name = &v
	}
	if v := a.prompt(fmt.Sprintf("Email [%s]: ", a.current.Email)); v != "" {
		in.Email = &v
	}
	if v := a.prompt(fmt.Sprintf("Bio [%s]: ", a.current.Bio)); v != "" {
		in.Bio = &v
	}
	if v := promptPassword("New password (Enter to keep): "); v != "" {
		if v != promptPassword("Confirm new password: ") {
			fmt.Println("Passwords do not match. Password not updated.")
		} else {
			in.NewPassword = &v
		}
	}
	u, err := a.profiles.UpdateProfile(ctx, a.current.ID, in)
	if err != nil {
		fmt.Printf("Failed to update profile: %v\n", err)
		return
	}
	if u == nil {
		fmt.Println("No changes specified.")
		return
	}
	a.current = u
	fmt.Println("Profile updated successfully!")
}

func (a *consoleApp) refresh(ctx context.Context) {
	if u, err := a.registry.GetByUsername(ctx, a.current.Username); err == nil && u != nil {
		a.current = u
	}
}

func (a *consoleApp) follow(ctx context.Context) {
	target := a.prompt("Username to follow: ")
	if target == "" {
		fmt.Println("No username provided.")
		return
	}
	ok, err := a.follows.Follow(ctx, a.current.Username, target)
	switch {
	case errors.Is(err, entity.ErrSelfFollow):
		fmt.Println("You cannot follow yourself.")
	case err != nil:
		fmt.Printf("Follow failed: %v\n", err)
	case !ok:
		fmt.Printf("User %q not found.\n", target)
	default:
		fmt.Printf("You are now following %s.\n", target)
		a.refresh(ctx)
	}
}

func (a *consoleApp) unfollow(ctx context.Context) {
	target := a.prompt("Username to unfollow: ")
	if target == "" {
		fmt.Println("No username provided.")
		return
	}
	ok, err := a.follows.Unfollow(ctx, a.current.Username, target)
	switch {
	case errors.Is(err, entity.ErrSelfFollow):
		fmt.Println("You cannot unfollow yourself.")
	case err != nil:
		fmt.Printf("Unfollow failed: %v\n", err)
	case !ok:
		fmt.Printf("You are not following %q.\n", target)
	default:
		fmt.Printf("You unfollowed %s.\n", target)
		a.refresh(ctx)
	}
}

func (a *consoleApp) listFollowers(ctx context.Context) {
	users, err := a.queries.GetFollowers(ctx, a.current.Username, 0, pageSize)
	if err != nil {
		fmt.Printf("Could not fetch followers: %v\n", err)
		return
	}
	if len(users) == 0 {
		fmt.Println("No followers found.")
		return
	}
	fmt.Println("\n--- Followers ---")
	printUsers(users)
}

func (a *consoleApp) listFollowing(ctx context.Context) {
	users, err := a.queries.GetFollowing(ctx, a.current.Username, 0, pageSize)
	if err != nil {
		fmt.Printf("Could not fetch following: %v\n", err)
		return
	}
	if len(users) == 0 {
		fmt.Println("Not following anyone.")
		return
	}
	fmt.Println("\n--- Following ---")
	printUsers(users)
}

func (a *consoleApp) mutuals(ctx context.Context) {
	target := a.prompt("See mutuals with (username): ")
	if target == "" {
		fmt.Println("Username required.")
		return
	}
	users, err := a.queries.GetMutualConnections(ctx, a.current.Username, target)
	if err != nil {
		fmt.Printf("Could not fetch mutual connections: %v\n", err)
		return
	}
	fmt.Printf("\n--- Mutual connections with %s ---\n", target)
	if len(users) == 0 {
		fmt.Println("  (none)")
		return
	}
	for _, u := range users {
		fmt.Printf("  * %s (%s)\n", u.Username, u.Name)
	}
}

func (a *consoleApp) recommendations(ctx context.Context) {
	recs, err := a.queries.GetRecommendations(ctx, a.current.Username)
	if err != nil {
		fmt.Printf("Could not fetch recommendations: %v\n", err)
		return
	}
	if len(recs) == 0 {
		fmt.Println("No recommendations yet. Follow some people first!")
		return
	}
	fmt.Println("\n--- People you may know ---")
	for _, r := range recs {
		fmt.Printf("  * %s (%s), followed by %d of your connections\n", r.User.Username, r.User.Name, r.Strength)
	}
}

func (a *consoleApp) search(ctx context.Context) {
	q := a.prompt("Search query: ")
	if q == "" {
		fmt.Println("Query required.")
		return
	}
	hits, err := a.profiles.SearchUsers(ctx, q, 10)
	if err != nil {
		fmt.Printf("Search failed: %v\n", err)
		return
	}
	if len(hits) == 0 {
		fmt.Println("No users found. (Is search enabled?)")
		return
	}
	fmt.Println("\n--- Search results ---")
	for _, h := range hits {
		fmt.Printf("  * %v (%v)\n", h["username"], h["name"])
	}
}

func printUsers(users []*entity.User) {
	for _, u := range users {
		fmt.Printf(" - %s (%s)  followers:%d following:%d\n", u.Username, u.Name, u.FollowersCount, u.FollowingCount)
	}
}
