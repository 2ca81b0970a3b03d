/*
 * Copyright (c) 2026, Psiphon Inc.
 * All rights reserved.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Psiphon-Labs/proxyserver-client/proxyserver"
)

func main() {

	// Define command-line parameters

	var configFilename string
	flag.StringVar(&configFilename, "config", "", "configuration input file (optional)")

	var hostname string
	flag.StringVar(&hostname, "hostname", "", "proxy server hostname (overrides config)")

	var port string
	flag.StringVar(&port, "port", "", "proxy server port hint (overrides config)")

	var numListeners int
	flag.IntVar(&numListeners, "listeners", 0, "number of proxy server listeners (overrides config)")

	var request string
	flag.StringVar(&request, "request", "", "request to send")

	var requestFilename string
	flag.StringVar(&requestFilename, "requestFile", "", "file containing the request to send; \"-\" for stdin")

	var logLevel string
	flag.StringVar(&logLevel, "logLevel", "", "log level (overrides config)")

	var logFilename string
	flag.StringVar(&logFilename, "logFile", "", "log output file (overrides config; defaults to stderr)")

	flag.Parse()

	// Load and override configuration

	config := proxyserver.NewDefaultConfig()

	if configFilename != "" {
		configFileContents, err := os.ReadFile(configFilename)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error loading configuration file: %s\n", err)
			os.Exit(1)
		}
		config, err = proxyserver.LoadConfig(configFileContents)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error processing configuration file: %s\n", err)
			os.Exit(1)
		}
	}

	if hostname != "" {
		config.Hostname = hostname
	}
	if port != "" {
		portNumber, err := proxyserver.ParsePort(port)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid port: %s\n", err)
			os.Exit(1)
		}
		config.Port = proxyserver.SinglePort(portNumber)
	}
	if numListeners != 0 {
		config.NumListeners = numListeners
	}
	if logLevel != "" {
		config.LogLevel = logLevel
	}
	if logFilename != "" {
		config.LogFilename = logFilename
	}

	err := proxyserver.InitLogging(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error initializing logging: %s\n", err)
		os.Exit(1)
	}
	log := proxyserver.Logger()

	// Read the request

	var requestBytes []byte
	switch {
	case request != "" && requestFilename != "":
		log.WithTrace().Error("specify only one of -request and -requestFile")
		os.Exit(1)
	case requestFilename == "-":
		requestBytes, err = io.ReadAll(os.Stdin)
	case requestFilename != "":
		requestBytes, err = os.ReadFile(requestFilename)
	default:
		requestBytes = []byte(request)
	}
	if err != nil {
		log.WithTraceFields(proxyserver.LogFields{"error": err}).Error("failed to read request")
		os.Exit(1)
	}

	// Send the request and print the response

	proxyClient, err := proxyserver.NewProxyClient(config)
	if err != nil {
		log.WithTraceFields(proxyserver.LogFields{"error": err}).Error("failed to configure client")
		os.Exit(1)
	}

	response, err := proxyClient.Get(requestBytes)
	if err != nil {
		log.WithTraceFields(proxyserver.LogFields{
			"hostname": proxyClient.Hostname(),
			"kind":     proxyserver.ErrorKindOf(err).Error(),
			"code":     proxyserver.ErrorCode(err),
			"error":    err,
		}).Error("request failed")
		os.Exit(1)
	}

	_, err = os.Stdout.Write(response)
	if err != nil {
		os.Exit(1)
	}
}
