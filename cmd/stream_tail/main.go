// Command stream_tail follows the Redis event stream of a single debate and
// prints every event as it arrives. Useful for watching a live debate from
// the terminal when the Redis sink is enabled.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

func main() {
	addr := flag.String("addr", "localhost:6379", "redis address")
	password := flag.String("password", "", "redis password")
	db := flag.Int("db", 0, "redis database")
	debateID := flag.String("debate", "", "debate id to follow")
	from := flag.String("from", "$", "stream id to start from ($ = only new events, 0 = full history)")
	flag.Parse()

	if *debateID == "" {
		log.Fatal("-debate is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     *addr,
		Password: *password,
		DB:       *db,
	})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	streamKey := fmt.Sprintf("debate:%s:events", *debateID)
	lastID := *from
	log.Printf("Following %s from %s", streamKey, lastID)

	for {
		streams, err := client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{streamKey, lastID},
			Count:   100,
			Block:   5 * time.Second,
		}).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			log.Printf("Read error: %v", err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				lastID = message.ID
				data, ok := message.Values["data"].(string)
				if !ok {
					continue
				}
				fmt.Printf("%s %s\n", message.ID, data)
			}
		}
	}
}
