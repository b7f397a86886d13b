package transport

// TypeSocketCAN is the registry name of the Linux SocketCAN transport.
// On other platforms the constructor reports itself unsupported.
const TypeSocketCAN = "socketcan"
