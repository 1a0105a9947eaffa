// Command shmcam sends and receives frames over shared memory virtual
// camera channels.
package main

func main() {
	Execute()
}
