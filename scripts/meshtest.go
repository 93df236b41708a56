// meshtest is a tool to verify circuit breaker and retry behavior
// in the mesh gateway by driving traffic until a breaker trips.
//
// Usage:
//
//	go run meshtest.go -gw http://localhost:8080 -service order
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

func main() {
	var (
		gwURL    = flag.String("gw", "http://localhost:8080", "Mesh gateway URL")
		service  = flag.String("service", "order", "Service whose breaker to exercise")
		requests = flag.Int("requests", 20, "Requests per phase")
	)
	flag.Parse()

	client := &http.Client{Timeout: 30 * time.Second}

	fmt.Println(colorCyan + "╔════════════════════════════════════════════════════════════════╗" + colorReset)
	fmt.Println(colorCyan + "║         CIRCUIT BREAKER & RETRY TEST                          ║" + colorReset)
	fmt.Println(colorCyan + "╚════════════════════════════════════════════════════════════════╝" + colorReset)
	fmt.Println()

	// PHASE 1: Verify normal operation
	fmt.Println(colorBlue + "━━━ PHASE 1: Normal Operation ━━━" + colorReset)
	fmt.Println("Sending requests to verify all services respond...")

	paths := []string{"/catalog/products", "/cart/meshtest", "/order/health"}
	replicaHits := make(map[string]int)
	okCount := 0
	for i := 0; i < *requests; i++ {
		path := paths[i%len(paths)]
		resp, replica, err := sendRequest(client, *gwURL, path)
		if err != nil {
			fmt.Printf(colorRed+"  Request %d: ERROR - %v\n"+colorReset, i+1, err)
			continue
		}
		if resp.StatusCode >= 500 {
			fmt.Printf(colorYellow+"  Request %d: %s Status=%d\n"+colorReset, i+1, path, resp.StatusCode)
		} else {
			okCount++
			replicaHits[replica]++
		}
		resp.Body.Close()
	}

	fmt.Println("\n  Replica distribution:")
	for replica, count := range replicaHits {
		fmt.Printf("    replica %s → %d requests\n", replica, count)
	}
	if okCount == 0 {
		fmt.Println(colorRed + "  ✗ No responses! Is the mesh gateway running?" + colorReset)
		os.Exit(1)
	}
	fmt.Println(colorGreen + "  ✓ Normal operation verified" + colorReset)
	fmt.Println()

	// PHASE 2: Hammer one service until its breaker trips
	fmt.Println(colorBlue + "━━━ PHASE 2: Tripping the Breaker ━━━" + colorReset)
	fmt.Printf("Driving traffic at %s until injected faults open its circuit...\n", *service)

	tripped := false
	for i := 0; i < *requests*10 && !tripped; i++ {
		resp, _, err := sendRequest(client, *gwURL, "/"+*service+"/health")
		if err != nil {
			fmt.Printf(colorRed+"  Request %d: ERROR - %v\n"+colorReset, i+1, err)
			continue
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusServiceUnavailable &&
			strings.Contains(string(body), "circuit breaker open") {
			fmt.Printf(colorGreen+"  ✓ Breaker opened after %d requests\n"+colorReset, i+1)
			tripped = true
		}
	}
	if !tripped {
		fmt.Println(colorYellow + "  ⚠ Breaker never opened (fault rates may be too low)" + colorReset)
	}
	fmt.Println()

	// PHASE 3: Inspect breaker state
	fmt.Println(colorBlue + "━━━ PHASE 3: Circuit Breaker Status ━━━" + colorReset)
	fmt.Println("Checking /mesh/status endpoint...")

	status, err := getJSON(client, *gwURL+"/mesh/status")
	if err != nil {
		fmt.Printf(colorYellow+"  Could not fetch mesh status: %v\n"+colorReset, err)
	} else if breakers, ok := status["circuit_breakers"].(map[string]interface{}); ok {
		for name, data := range breakers {
			if bs, ok := data.(map[string]interface{}); ok {
				state := bs["state"].(string)
				failures := int(bs["failure_count"].(float64))
				color := colorGreen
				if state == "open" {
					color = colorRed
				}
				fmt.Printf("    %s → %s%s%s (failures: %d)\n", name, color, strings.ToUpper(state), colorReset, failures)
			}
		}
	}
	fmt.Println()

	// PHASE 4: Manual reset and recovery
	fmt.Println(colorBlue + "━━━ PHASE 4: Manual Reset ━━━" + colorReset)
	fmt.Printf("Resetting breaker for %s...\n", *service)

	resp, err := client.Post(*gwURL+"/mesh/reset/"+*service, "application/json", nil)
	if err != nil {
		fmt.Printf(colorRed+"  Reset failed: %v\n"+colorReset, err)
	} else {
		fmt.Printf("  Reset: Status=%d\n", resp.StatusCode)
		resp.Body.Close()
	}

	resp2, _, err := sendRequest(client, *gwURL, "/"+*service+"/health")
	if err != nil {
		fmt.Printf(colorRed+"  Post-reset request failed: %v\n"+colorReset, err)
	} else {
		fmt.Printf("  Post-reset request: Status=%d\n", resp2.StatusCode)
		resp2.Body.Close()
	}
	fmt.Println(colorGreen + "  ✓ Reset behavior verified" + colorReset)
	fmt.Println()

	// PHASE 5: Metrics snapshot
	fmt.Println(colorBlue + "━━━ PHASE 5: Metrics ━━━" + colorReset)
	fmt.Println("Checking /metrics endpoint...")

	metrics, err := getJSON(client, *gwURL+"/metrics")
	if err != nil {
		fmt.Printf(colorYellow+"  Could not fetch metrics: %v\n"+colorReset, err)
	} else if services, ok := metrics["services"].(map[string]interface{}); ok {
		fmt.Println("\n  Per-service traffic:")
		for name, data := range services {
			if sm, ok := data.(map[string]interface{}); ok {
				reqs := int(sm["requests"].(float64))
				rejections := int(sm["circuit_rejections"].(float64))
				fmt.Printf("    %s → requests: %d, circuit rejections: %d\n", name, reqs, rejections)
			}
		}
	}
	fmt.Println()

	// Summary
	fmt.Println(colorCyan + "╔════════════════════════════════════════════════════════════════╗" + colorReset)
	fmt.Println(colorCyan + "║                    TEST COMPLETE                               ║" + colorReset)
	fmt.Println(colorCyan + "╚════════════════════════════════════════════════════════════════╝" + colorReset)
	fmt.Println()
	fmt.Println("Key behaviors verified:")
	fmt.Println("  1. Normal dispatch across simulated replicas")
	fmt.Println("  2. Circuit breaker opening under injected faults")
	fmt.Println("  3. Breaker state exposure via /mesh/status")
	fmt.Println("  4. Manual reset via /mesh/reset/{service}")
	fmt.Println()
	fmt.Println("Check gateway logs for detailed retry/circuit breaker activity.")
}

func sendRequest(client *http.Client, url, path string) (*http.Response, string, error) {
	req, err := http.NewRequest("GET", url+path, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}

	replica := resp.Header.Get("X-Replica-ID")
	return resp, replica, nil
}

func getJSON(client *http.Client, url string) (map[string]interface{}, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	return payload, nil
}
