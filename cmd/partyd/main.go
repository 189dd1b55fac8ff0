// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/meshroom/partyline/internal/logx"
	"github.com/meshroom/partyline/pkg/directory"
)

// VERSION is populated via build flags when packaging official binaries.
var VERSION = "SELFBUILD"

func main() {
	myApp := cli.NewApp()
	myApp.Name = "partyd"
	myApp.Usage = "rendezvous and room directory for partyline"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "keepalive",
			Value: 300,
			Usage: "seconds between idle in-room heartbeats",
		},
		cli.StringFlag{
			Name:  "log",
			Value: "",
			Usage: "specify a log file to output, default goes to stderr",
		},
		cli.StringFlag{
			Name:  "log-format",
			Value: "",
			Usage: "console for human-readable logs, empty for JSON",
		},
		cli.StringFlag{
			Name:  "c",
			Value: "",
			Usage: "config from json file, which will override the command from shell",
		},
	}
	myApp.Action = func(c *cli.Context) error {
		port := 5566
		if c.NArg() > 0 {
			p, err := strconv.Atoi(c.Args().Get(0))
			if err != nil {
				return errors.Wrap(err, "parsing port argument")
			}
			port = p
		}

		config := Config{
			Listen:    fmt.Sprintf("0.0.0.0:%d", port),
			KeepAlive: c.Int("keepalive"),
			Log:       c.String("log"),
			LogFormat: c.String("log-format"),
		}

		if c.String("c") != "" {
			if err := parseJSONConfig(&config, c.String("c")); err != nil {
				return errors.Wrap(err, "parsing json config")
			}
		}

		log, closer, err := logx.New(config.Log, config.LogFormat)
		if err != nil {
			return errors.Wrap(err, "setting up logger")
		}
		defer closer()

		log.Info().Str("version", VERSION).Str("listen", config.Listen).Int("keepalive", config.KeepAlive).Msg("starting partyd")

		lis, err := net.Listen("tcp", config.Listen)
		if err != nil {
			return errors.Wrap(err, "listening")
		}
		defer lis.Close()

		users := directory.NewUserRegistry()
		rooms := directory.NewRoomRegistry()
		keepalive := time.Duration(config.KeepAlive) * time.Second

		go runStdin(users, rooms)

		for {
			conn, err := lis.Accept()
			if err != nil {
				log.Error().Err(err).Msg("accept failed")
				continue
			}
			log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("accepted connection")
			sess := directory.NewSession(conn, users, rooms, log, keepalive)
			go sess.Serve()
		}
	}

	if err := myApp.Run(os.Args); err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}
}

// runStdin serves the three operator commands documented for the
// server: "echo rooms", "echo users", and "exit" (case-insensitive,
// trimmed).
func runStdin(users *directory.UserRegistry, rooms *directory.RoomRegistry) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "echo rooms":
			for _, r := range rooms.Snapshot() {
				fmt.Printf("room %d %q members=%v\n", r.ID, r.Name, r.Members)
			}
		case "echo users":
			for _, u := range users.Snapshot() {
				fmt.Printf("user %d %q\n", u.ID, u.Name)
			}
		case "exit":
			os.Exit(0)
		}
	}
}
