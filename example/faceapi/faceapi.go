/*
Example code showing how to send a captured face image to a face recognition
service to enroll, identify or delete a template.

The ooto provider reads OOTO_BASE_URL, OOTO_APP_ID and OOTO_APP_KEY from the
environment.  The rekognition provider uses the AWS default credential chain
and REKOGNITION_COLLECTION_ID.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"github.com/swdee/go-facecapture/cloud"
	"log"
	"os"
	"time"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	provider := flag.String("p", "ooto", "Face recognition service [ooto|rekognition]")
	action := flag.String("a", "identify", "Action to perform [enroll|identify|delete]")
	imgFile := flag.String("i", "../data/face.jpg", "Captured face JPG file")
	templateID := flag.String("t", "", "Template ID to enroll as or delete")
	timeout := flag.Duration("timeout", 90*time.Second, "Overall request timeout")

	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, err := newProvider(ctx, *provider)

	if err != nil {
		log.Fatal("Error creating face service client: ", err)
	}

	switch *action {
	case "enroll":
		res, err := client.Enroll(ctx, readImage(*imgFile), *templateID)

		if err != nil {
			fail(err)
		}

		fmt.Printf("Enrolled template %s (transaction %s)\n", res.TemplateID, res.TransactionID)
		printFace(res.Face)

	case "identify":
		res, err := client.Identify(ctx, readImage(*imgFile))

		if err != nil {
			fail(err)
		}

		if !res.Matched {
			fmt.Printf("No matching template (transaction %s)\n", res.TransactionID)
			return
		}

		fmt.Printf("Matched template %s with similarity %.3f (transaction %s)\n",
			res.TemplateID, res.Similarity, res.TransactionID)
		printFace(res.Face)

	case "delete":
		res, err := client.Delete(ctx, *templateID)

		if err != nil {
			fail(err)
		}

		fmt.Printf("Deleted template %s (transaction %s)\n", *templateID, res.TransactionID)

	default:
		log.Fatal("Unknown action: ", *action)
	}
}

func newProvider(ctx context.Context, name string) (cloud.Provider, error) {

	switch name {
	case "ooto":
		cfg, err := cloud.LoadOotoConfig()

		if err != nil {
			return nil, err
		}

		return cloud.NewOotoClient(cfg)

	case "rekognition":
		cfg, err := cloud.LoadRekognitionConfig()

		if err != nil {
			return nil, err
		}

		return cloud.NewRekognition(ctx, cfg)
	}

	return nil, fmt.Errorf("unknown provider %q", name)
}

func readImage(file string) []byte {

	data, err := os.ReadFile(file)

	if err != nil {
		log.Fatal("Error reading image: ", err)
	}

	return data
}

func printFace(f *cloud.FaceDetails) {

	if f == nil {
		return
	}

	if f.Liveness != nil {
		fmt.Printf("  liveness score=%.3f fine=%t\n", f.Liveness.Score, f.Liveness.Fine)
	}

	if f.Deepfake != nil {
		fmt.Printf("  deepfake score=%.3f fine=%t\n", f.Deepfake.Score, f.Deepfake.Fine)
	}

	if f.Gender != "" || f.Age > 0 {
		fmt.Printf("  gender=%s age=%d\n", f.Gender, f.Age)
	}
}

// fail prints the user facing message for the error and exits
func fail(err error) {
	log.Printf("%s\n", cloud.UserMessage(err))
	log.Fatalf("Error: %v", err)
}
