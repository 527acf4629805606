package main

import "log"

func main() {
	s, err := createServer()
	if err != nil {
		log.Fatalln(err)
	}
	if err := s.Start(); err != nil {
		log.Fatalln(err)
	}
}
