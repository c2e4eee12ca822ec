// Command clusterfs runs the simulated clustered-disk storage server.
package main

func main() {
	execute()
}
