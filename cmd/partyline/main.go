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
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/meshroom/partyline/internal/logx"
	"github.com/meshroom/partyline/pkg/peer"
	"github.com/meshroom/partyline/pkg/proto"
)

// VERSION is populated via build flags when packaging official binaries.
var VERSION = "SELFBUILD"

func main() {
	myApp := cli.NewApp()
	myApp.Name = "partyline"
	myApp.Usage = "peer-to-peer group chat client"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "port-range",
			Value: "4000-9000",
			Usage: "local port window to boot from, eg 4000-9000",
		},
		cli.BoolFlag{
			Name:  "listen",
			Usage: "also listen for inbound peer connections on the boot endpoint",
		},
		cli.IntFlag{
			Name:  "dial-timeout",
			Value: 5,
			Usage: "seconds to wait for a peer or server dial",
		},
		cli.IntFlag{
			Name:  "control-heartbeat",
			Value: 5,
			Usage: "seconds between control-channel heartbeats",
		},
		cli.IntFlag{
			Name:  "peer-heartbeat",
			Value: 60,
			Usage: "seconds between peer-link heartbeats",
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
		server := "127.0.0.1:5566"
		if c.NArg() > 0 {
			server = c.Args().Get(0)
		}

		config := Config{
			Server:           server,
			PortRange:        c.String("port-range"),
			Listen:           c.Bool("listen"),
			DialTimeout:      c.Int("dial-timeout"),
			ControlHeartbeat: c.Int("control-heartbeat"),
			PeerHeartbeat:    c.Int("peer-heartbeat"),
			Log:              c.String("log"),
			LogFormat:        c.String("log-format"),
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

		ports, err := peer.ParsePortRange(config.PortRange)
		if err != nil {
			color.Red("invalid --port-range %q: %v, falling back to 4000-9000", config.PortRange, err)
			ports = peer.DefaultPortRange()
		}

		client, err := peer.Boot(peer.BootConfig{
			ServerAddr:       config.Server,
			Ports:            ports,
			Listen:           config.Listen,
			DialTimeout:      time.Duration(config.DialTimeout) * time.Second,
			ControlHeartbeat: time.Duration(config.ControlHeartbeat) * time.Second,
			PeerHeartbeat:    time.Duration(config.PeerHeartbeat) * time.Second,
		}, log)
		if err != nil {
			return errors.Wrap(err, "connecting to "+config.Server)
		}
		defer client.Close()

		stdin := bufio.NewScanner(os.Stdin)

		if err := loginDialog(client, stdin); err != nil {
			return errors.Wrap(err, "login")
		}
		snapshot, err := roomDialog(client, stdin)
		if err != nil {
			return errors.Wrap(err, "room join")
		}

		go printEvents(client)
		go client.MassConnect(snapshot)
		go readStdinLines(client, stdin)

		client.Run()
		return nil
	}

	if err := myApp.Run(os.Args); err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}
}

// loginDialog runs the login prompt loop: ask for a name and password,
// submit, and re-prompt on rejection.
func loginDialog(client *peer.Client, stdin *bufio.Scanner) error {
	for {
		fmt.Print("name: ")
		name := readLine(stdin)
		fmt.Print("password: ")
		passwd := readLine(stdin)

		err := client.Login(name, passwd)
		if err == nil {
			return nil
		}
		fmt.Println(err)
	}
}

// roomDialog runs the room-join prompt loop analogously to loginDialog,
// returning the joined room's member snapshot.
func roomDialog(client *peer.Client, stdin *bufio.Scanner) ([]proto.ClientInfo, error) {
	for {
		fmt.Print("room name: ")
		name := readLine(stdin)
		fmt.Print("room password: ")
		passwd := readLine(stdin)

		snapshot, err := client.JoinRoom(0, name, passwd)
		if err == nil {
			return snapshot, nil
		}
		fmt.Println(err)
	}
}

func readLine(stdin *bufio.Scanner) string {
	if !stdin.Scan() {
		return ""
	}
	return stdin.Text()
}

func printEvents(client *peer.Client) {
	for ev := range client.Sink() {
		switch e := ev.(type) {
		case peer.ChatEvent:
			fmt.Printf("%s: %s\n", e.From.Name, e.Text)
		case peer.DisconnectEvent:
			fmt.Printf("* %s disconnected\n", e.Peer.Name)
		case peer.JoinedEvent:
			fmt.Printf("* %s joined the room\n", e.Peer.Name)
		case peer.LogEvent:
			fmt.Println(e.Text)
		}
	}
}

func readStdinLines(client *peer.Client, stdin *bufio.Scanner) {
	for stdin.Scan() {
		client.Input().Publish(stdin.Text())
	}
	client.Input().Close()
}
